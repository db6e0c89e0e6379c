package api

// ProcessDocumentResponse is the success body of POST /api/documents/process.
type ProcessDocumentResponse struct {
	AssetID string `json:"assetId"`
}

// StartSessionRequest is the body of POST /api/chat/start.
type StartSessionRequest struct {
	AssetID string `json:"assetId"`
}

// StartSessionResponse is the success body of POST /api/chat/start.
type StartSessionResponse struct {
	ChatThreadID string `json:"chatThreadId"`
}

// SendMessageRequest is the body of POST /api/chat/message. The success
// response is raw text streamed in the body, not JSON.
type SendMessageRequest struct {
	ChatThreadID string `json:"chatThreadId"`
	Query        string `json:"query"`
}

// Turn is one question/answer exchange in a chat thread.
type Turn struct {
	UserMessage   string `json:"userMessage"`
	AgentResponse string `json:"agentResponse"`
}

// HistoryResponse is the success body of GET /api/chat/history.
type HistoryResponse struct {
	History []Turn `json:"history"`
}

// DocumentFormField is the multipart field carrying the uploaded document.
const DocumentFormField = "file"

// Backend API paths.
const (
	PathProcessDocument = "/api/documents/process"
	PathStartSession    = "/api/chat/start"
	PathSendMessage     = "/api/chat/message"
	PathHistory         = "/api/chat/history"
)
