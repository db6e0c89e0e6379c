package mockbackend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/rhuss/docchat/pkg/api"
	"github.com/rhuss/docchat/pkg/debug"
)

// asset is an uploaded document.
type asset struct {
	id       string
	filename string
	content  []byte
}

// thread is a chat session on one asset.
type thread struct {
	id      string
	assetID string
	history []api.Turn
}

// Backend holds the in-memory state behind the API handlers.
type Backend struct {
	fragmentSize  int
	fragmentDelay time.Duration
	maxUpload     int64
	logger        *slog.Logger

	mu      sync.Mutex
	assets  map[string]*asset
	threads map[string]*thread
}

func newBackend(cfg Config, logger *slog.Logger) *Backend {
	return &Backend{
		fragmentSize:  cfg.FragmentSize,
		fragmentDelay: cfg.FragmentDelay,
		maxUpload:     cfg.MaxUploadBytes,
		logger:        logger,
		assets:        make(map[string]*asset),
		threads:       make(map[string]*thread),
	}
}

// register adds the API routes to mux.
func (b *Backend) register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+api.PathProcessDocument, b.handleProcessDocument)
	mux.HandleFunc("POST "+api.PathStartSession, b.handleStartSession)
	mux.HandleFunc("POST "+api.PathSendMessage, b.handleSendMessage)
	mux.HandleFunc("GET "+api.PathHistory, b.handleHistory)
}

func (b *Backend) handleProcessDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, b.maxUpload)

	file, header, err := r.FormFile(api.DocumentFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, api.NewInvalidRequestError(api.DocumentFormField, "document exceeds upload limit"))
			return
		}
		writeAPIError(w, api.NewInvalidRequestError(api.DocumentFormField, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeAPIError(w, api.NewInvalidRequestError(api.DocumentFormField, "reading document: "+err.Error()))
		return
	}

	a := &asset{
		id:       api.NewAssetID(),
		filename: filepath.Base(header.Filename),
		content:  content,
	}
	b.mu.Lock()
	b.assets[a.id] = a
	b.mu.Unlock()

	b.logger.Debug("document processed", "asset", a.id, "filename", a.filename, "bytes", len(content))
	writeJSON(w, api.ProcessDocumentResponse{AssetID: a.id})
}

func (b *Backend) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req api.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, api.NewInvalidRequestError("", "invalid JSON body"))
		return
	}
	if apiErr := api.ValidateStartSession(&req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.assets[req.AssetID]; !ok {
		writeAPIError(w, notFound("asset "+req.AssetID+" not found"))
		return
	}
	th := &thread{id: api.NewThreadID(), assetID: req.AssetID}
	b.threads[th.id] = th

	writeJSON(w, api.StartSessionResponse{ChatThreadID: th.id})
}

func (b *Backend) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req api.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(w, api.NewInvalidRequestError("", "invalid JSON body"))
		return
	}
	if apiErr := api.ValidateSendMessage(&req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	b.mu.Lock()
	th, ok := b.threads[req.ChatThreadID]
	var answer string
	if ok {
		answer = composeAnswer(b.assets[th.assetID], req.Query, len(th.history)+1)
	}
	b.mu.Unlock()
	if !ok {
		writeAPIError(w, notFound("chat thread "+req.ChatThreadID+" not found"))
		return
	}
	debug.Log("mock", "answer composed", "thread", th.id, "query", debug.Truncate(req.Query, 64), "bytes", len(answer))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	n, err := streamText(r.Context(), w, answer, b.fragmentSize, b.fragmentDelay)
	if err != nil {
		b.logger.Debug("stream aborted", "thread", th.id, "bytes", n, "error", err)
		return
	}

	b.mu.Lock()
	th.history = append(th.history, api.Turn{UserMessage: req.Query, AgentResponse: answer})
	b.mu.Unlock()
}

func (b *Backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("chatThreadId")
	if apiErr := api.ValidateThreadID(id); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}

	b.mu.Lock()
	th, ok := b.threads[id]
	var history []api.Turn
	if ok {
		history = make([]api.Turn, len(th.history))
		copy(history, th.history)
	}
	b.mu.Unlock()

	if !ok {
		writeAPIError(w, notFound("chat thread "+id+" not found"))
		return
	}
	writeJSON(w, api.HistoryResponse{History: history})
}
