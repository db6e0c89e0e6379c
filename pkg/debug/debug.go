// Package debug provides category-based debug logging for docchat.
//
// Categories select WHAT to debug and are set through DOCCHAT_DEBUG or the
// log.debug config key. The log level still decides whether debug records
// are printed at all, so categories only take effect with level "debug".
//
//	debug.Log("client", "request", "method", "POST", "path", path)
//	if debug.Enabled("stream") { /* expensive formatting */ }
//
// Categories: client, stream, mock, mcp, storage, config, all.
package debug

import (
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

// EnvVar names the environment variable holding the enabled categories.
const EnvVar = "DOCCHAT_DEBUG"

var categories atomic.Pointer[map[string]bool]

func init() {
	set(parseCategories(os.Getenv(EnvVar)))
}

// Init enables the given comma-separated categories. The environment
// variable takes precedence over the configured value.
func Init(configCategories string) {
	cats := os.Getenv(EnvVar)
	if cats == "" {
		cats = configCategories
	}
	set(parseCategories(cats))
}

// Enabled reports whether debug output is active for the given category.
func Enabled(category string) bool {
	m := *categories.Load()
	return m["all"] || m[category]
}

// Log emits a debug record tagged with category. It is a no-op unless the
// category is enabled.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Categories returns the enabled categories in sorted order.
func Categories() []string {
	m := *categories.Load()
	result := make([]string, 0, len(m))
	for k := range m {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate shortens s to at most maxLen bytes on a rune boundary and
// appends "..." when anything was cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func set(m map[string]bool) {
	categories.Store(&m)
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	if s == "" {
		return m
	}
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
