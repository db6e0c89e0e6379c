package api

import "testing"

func TestValidateSendMessage(t *testing.T) {
	tests := []struct {
		name      string
		req       SendMessageRequest
		wantParam string
	}{
		{"valid", SendMessageRequest{ChatThreadID: "thread-abc", Query: "What's the main point?"}, ""},
		{"missing thread", SendMessageRequest{Query: "hi"}, "chatThreadId"},
		{"empty query", SendMessageRequest{ChatThreadID: "thread-abc"}, "query"},
		{"blank query", SendMessageRequest{ChatThreadID: "thread-abc", Query: " \n\t"}, "query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSendMessage(&tt.req)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Type != ErrorTypeInvalidRequest || err.Param != tt.wantParam {
				t.Errorf("got %+v, want invalid_request on %q", err, tt.wantParam)
			}
		})
	}
}

func TestValidateStartSession(t *testing.T) {
	if err := ValidateStartSession(&StartSessionRequest{AssetID: "a1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStartSession(&StartSessionRequest{}); err == nil || err.Param != "assetId" {
		t.Errorf("expected assetId error, got %v", err)
	}
}

func TestValidateThreadID(t *testing.T) {
	if err := ValidateThreadID(""); err == nil {
		t.Error("expected error for empty thread ID")
	}
	if err := ValidateThreadID("thread-abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
