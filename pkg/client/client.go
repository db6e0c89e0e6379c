package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/debug"
	"github.com/rhuss/docchat/pkg/observability"
)

const defaultUserAgent = "docchat-go/1.0"

// Backend API paths, re-exported for callers building test servers.
const (
	PathProcessDocument = api.PathProcessDocument
	PathStartSession    = api.PathStartSession
	PathSendMessage     = api.PathSendMessage
	PathHistory         = api.PathHistory
)

// Client performs HTTP requests against the document-chat backend.
//
// A Client is safe for concurrent use. Concurrent SendMessage calls are
// independent of each other; the client does not serialize them, even
// against the same chat thread.
type Client struct {
	cfg Config

	// httpClient carries the request timeout for the JSON calls.
	httpClient *http.Client

	// streamClient has no timeout; the context bounds message streams.
	streamClient *http.Client
}

// New creates a new Client with the given configuration.
// Returns an error if the configuration is invalid.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("client: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	// Normalize: remove trailing slash from base URL.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 32 * 1024
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		streamClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// BaseURL returns the normalized backend address.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// ProcessDocument uploads a document as multipart form data and returns
// the asset ID assigned by the backend.
func (c *Client) ProcessDocument(ctx context.Context, filename string, content io.Reader) (assetID string, err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendCall(observability.CallProcessDocument, start, err) }()

	if filename == "" {
		return "", api.NewInvalidRequestError("file", "file name is required")
	}
	if content == nil {
		return "", api.NewInvalidRequestError("file", "file content is required")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(api.DocumentFormField, filepath.Base(filename))
	if err != nil {
		return "", api.NewTransportError(fmt.Sprintf("failed to build upload: %s", err.Error()), 0, err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", api.NewTransportError(fmt.Sprintf("failed to read document: %s", err.Error()), 0, err)
	}
	if err := mw.Close(); err != nil {
		return "", api.NewTransportError(fmt.Sprintf("failed to build upload: %s", err.Error()), 0, err)
	}

	var resp api.ProcessDocumentResponse
	if err := c.doJSON(ctx, http.MethodPost, PathProcessDocument, &body, mw.FormDataContentType(), "failed to process document", &resp); err != nil {
		return "", err
	}
	return resp.AssetID, nil
}

// StartSession opens a chat session for a processed document and returns
// its chat thread ID.
func (c *Client) StartSession(ctx context.Context, assetID string) (chatThreadID string, err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendCall(observability.CallStartSession, start, err) }()

	req := api.StartSessionRequest{AssetID: assetID}
	if apiErr := api.ValidateStartSession(&req); apiErr != nil {
		return "", apiErr
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", api.NewTransportError(fmt.Sprintf("failed to marshal request: %s", err.Error()), 0, err)
	}

	var resp api.StartSessionResponse
	if err := c.doJSON(ctx, http.MethodPost, PathStartSession, bytes.NewReader(body), "application/json", "failed to start chat session", &resp); err != nil {
		return "", err
	}
	return resp.ChatThreadID, nil
}

// History returns the question/answer turns recorded by the backend for a
// chat thread, oldest first.
func (c *Client) History(ctx context.Context, chatThreadID string) (turns []api.Turn, err error) {
	start := time.Now()
	defer func() { observability.ObserveBackendCall(observability.CallHistory, start, err) }()

	if apiErr := api.ValidateThreadID(chatThreadID); apiErr != nil {
		return nil, apiErr
	}

	path := PathHistory + "?chatThreadId=" + url.QueryEscape(chatThreadID)

	var resp api.HistoryResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, "", "failed to get chat history", &resp); err != nil {
		return nil, err
	}
	if resp.History == nil {
		resp.History = []api.Turn{}
	}
	return resp.History, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	c.streamClient.CloseIdleConnections()
	return nil
}

// newRequest builds a request against the backend with the common headers.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, api.NewTransportError(fmt.Sprintf("failed to create HTTP request: %s", err.Error()), 0, err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	httpReq.Header.Set("X-Request-ID", api.NewRequestID())
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return httpReq, nil
}

// doJSON sends a request and decodes a JSON success body into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, contentType, failMessage string, out any) error {
	httpReq, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")

	requestID := httpReq.Header.Get("X-Request-ID")
	slog.Debug("backend request", "method", method, "path", path, "request_id", requestID)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		apiErr := mapNetworkError(ctx, failMessage, err)
		slog.Warn("backend request failed", "path", path, "request_id", requestID, "error", apiErr.Error())
		return apiErr
	}
	defer httpResp.Body.Close()
	debug.Log("client", "backend response", "path", path, "request_id", requestID,
		"status", httpResp.StatusCode, "content_type", httpResp.Header.Get("Content-Type"))

	if !isSuccess(httpResp.StatusCode) {
		apiErr := mapHTTPError(httpResp, failMessage)
		slog.Warn("backend returned error status", "path", path, "request_id", requestID, "status", httpResp.StatusCode)
		return apiErr
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return api.NewCancelledError(ctx.Err())
		}
		return api.NewTransportError(fmt.Sprintf("failed to parse backend response: %s", err.Error()), httpResp.StatusCode, err)
	}
	return nil
}
