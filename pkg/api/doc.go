// Package api defines the wire types and error taxonomy shared by the
// docchat client, the chat session, the mock backend and the CLI.
//
// The package performs no I/O. All types produce JSON compatible with the
// document-chat backend's HTTP API:
//
//   - POST /api/documents/process -> [ProcessDocumentResponse]
//   - POST /api/chat/start ([StartSessionRequest]) -> [StartSessionResponse]
//   - POST /api/chat/message ([SendMessageRequest]) -> raw streamed text
//   - GET /api/chat/history?chatThreadId=... -> [HistoryResponse]
//
// Every failure surfaced by the client is an [*APIError]. Its [ErrorType]
// distinguishes rate limiting, transport failures, cancellation and local
// request validation.
package api
