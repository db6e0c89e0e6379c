package debug

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "client", map[string]bool{"client": true}},
		{"multiple", "client,stream", map[string]bool{"client": true, "stream": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " client , stream ", map[string]bool{"client": true, "stream": true}},
		{"uppercase normalized", "CLIENT,Stream", map[string]bool{"client": true, "stream": true}},
		{"empty segments", "client,,stream", map[string]bool{"client": true, "stream": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

// restore puts back the categories active before the test.
func restore(t *testing.T) {
	orig := categories.Load()
	t.Cleanup(func() { categories.Store(orig) })
}

func TestEnabled(t *testing.T) {
	restore(t)
	set(parseCategories("client,mock"))

	if !Enabled("client") {
		t.Error("client should be enabled")
	}
	if !Enabled("mock") {
		t.Error("mock should be enabled")
	}
	if Enabled("mcp") {
		t.Error("mcp should not be enabled")
	}
	if Enabled("all") {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	restore(t)
	set(parseCategories("all"))

	for _, cat := range []string{"client", "storage", "anything"} {
		if !Enabled(cat) {
			t.Errorf("%s should be enabled via 'all'", cat)
		}
	}
}

func TestInit_EnvOverridesConfig(t *testing.T) {
	restore(t)
	t.Setenv(EnvVar, "stream")

	Init("client")

	if Enabled("client") {
		t.Error("config categories should be ignored when the env var is set")
	}
	if !Enabled("stream") {
		t.Error("stream should be enabled from the env var")
	}
}

func TestInit_FromConfig(t *testing.T) {
	restore(t)
	t.Setenv(EnvVar, "")

	Init("storage, mcp")

	if got := Categories(); len(got) != 2 || got[0] != "mcp" || got[1] != "storage" {
		t.Errorf("Categories() = %v, want [mcp storage]", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q, want %q", got, "short")
	}
	if got := Truncate("this is a long string", 10); got != "this is a ..." {
		t.Errorf("Truncate long = %q, want %q", got, "this is a ...")
	}
	// "ü" is two bytes; cutting inside it backs up to the rune start.
	if got := Truncate("aü", 2); got != "a..." {
		t.Errorf("Truncate multibyte = %q, want %q", got, "a...")
	}
}

func TestLog(t *testing.T) {
	restore(t)
	var buf bytes.Buffer
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(orig) })

	set(parseCategories("client"))
	Log("client", "request sent", "path", "/api/chat/start")
	Log("mock", "hidden")

	out := buf.String()
	if !strings.Contains(out, "debug=client") || !strings.Contains(out, "path=/api/chat/start") {
		t.Errorf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("disabled category was logged: %s", out)
	}
}
