package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/Zereker/filesearch/internal/action"
	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/log"
	"github.com/Zereker/filesearch/pkg/mq"
)

// Handler handles HTTP API requests
type Handler struct {
	logger *slog.Logger
	search *action.FileSearch

	// optional async ingestion queue
	queue       mq.MessageQueue
	ingestTopic string
}

// NewHandler creates a new HTTP handler
func NewHandler(search *action.FileSearch, queue mq.MessageQueue, ingestTopic string) *Handler {
	return &Handler{
		logger:      log.Logger("http.handler"),
		search:      search,
		queue:       queue,
		ingestTopic: ingestTopic,
	}
}

// Response represents a standard API response
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Store operations
	mux.HandleFunc("POST /api/v1/stores", h.CreateStore)
	mux.HandleFunc("GET /api/v1/stores", h.ListStores)
	mux.HandleFunc("GET /api/v1/stores/{store}", h.FindStore)
	mux.HandleFunc("DELETE /api/v1/stores/{store}", h.DeleteStore)

	// Document operations
	mux.HandleFunc("POST /api/v1/stores/{store}/documents", h.UploadDocument)
	mux.HandleFunc("GET /api/v1/stores/{store}/documents", h.ListDocuments)
	mux.HandleFunc("GET /api/v1/stores/{store}/documents/{doc}", h.FindDocument)
	mux.HandleFunc("PUT /api/v1/stores/{store}/documents/{doc}", h.UpdateDocument)
	mux.HandleFunc("DELETE /api/v1/stores/{store}/documents/{doc}", h.DeleteDocument)
	mux.HandleFunc("POST /api/v1/stores/{store}/ingest", h.EnqueueIngest)

	// Grounded query
	mux.HandleFunc("POST /api/v1/stores/{store}/query", h.Query)

	// Health check
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// apiKey extracts the caller's API key from X-Api-Key or Authorization: Bearer
func apiKey(r *http.Request) string {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// CreateStore handles POST /api/v1/stores
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	store, err := h.search.CreateStore(r.Context(), key, req.DisplayName)
	if err != nil {
		h.writeDomainError(w, "create store", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: store})
}

// ListStores handles GET /api/v1/stores
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	stores, err := h.search.ListStores(r.Context(), key)
	if err != nil {
		h.writeDomainError(w, "list stores", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: stores})
}

// FindStore handles GET /api/v1/stores/{store}
func (h *Handler) FindStore(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	store, err := h.search.FindStore(r.Context(), key, r.PathValue("store"))
	if err != nil {
		h.writeDomainError(w, "find store", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: store})
}

// DeleteStore handles DELETE /api/v1/stores/{store}
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	name := r.PathValue("store")
	store, err := h.search.FindStore(r.Context(), key, name)
	if err != nil {
		h.writeDomainError(w, "delete store", err)
		return
	}

	if err := h.search.DeleteStore(r.Context(), key, store); err != nil {
		h.writeDomainError(w, "delete store", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"deleted": name}})
}

// uploadRequest is the JSON body for document upload and update
type uploadRequest struct {
	DisplayName string                  `json:"display_name,omitempty"`
	MimeType    string                  `json:"mime_type,omitempty"`
	FileName    string                  `json:"file_name,omitempty"`
	Data        []byte                  `json:"data"` // base64 on the wire
	Metadata    []domain.CustomMetadata `json:"metadata,omitempty"`
	Chunking    *domain.ChunkingConfig  `json:"chunking,omitempty"`
}

func (u *uploadRequest) source() domain.UploadSource {
	return domain.UploadSource{Data: u.Data, Name: u.FileName}
}

func (u *uploadRequest) options() domain.UploadOptions {
	return domain.UploadOptions{
		DisplayName: u.DisplayName,
		MimeType:    u.MimeType,
		Metadata:    u.Metadata,
		Chunking:    u.Chunking,
	}
}

// UploadDocument handles POST /api/v1/stores/{store}/documents
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	store, err := h.search.FindStore(r.Context(), key, r.PathValue("store"))
	if err != nil {
		h.writeDomainError(w, "upload document", err)
		return
	}

	doc, err := h.search.UploadDocument(r.Context(), key, store, req.source(), req.options())
	if err != nil {
		h.writeDomainError(w, "upload document", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: doc})
}

// ListDocuments handles GET /api/v1/stores/{store}/documents
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	store, err := h.search.FindStore(r.Context(), key, r.PathValue("store"))
	if err != nil {
		h.writeDomainError(w, "list documents", err)
		return
	}

	docs, err := h.search.ListDocuments(r.Context(), key, store)
	if err != nil {
		h.writeDomainError(w, "list documents", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: docs})
}

// FindDocument handles GET /api/v1/stores/{store}/documents/{doc}
func (h *Handler) FindDocument(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	store, err := h.search.FindStore(r.Context(), key, r.PathValue("store"))
	if err != nil {
		h.writeDomainError(w, "find document", err)
		return
	}

	doc, err := h.search.FindDocument(r.Context(), key, store, r.PathValue("doc"))
	if err != nil {
		h.writeDomainError(w, "find document", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: doc})
}

// UpdateDocument handles PUT /api/v1/stores/{store}/documents/{doc}
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	store, err := h.search.FindStore(r.Context(), key, r.PathValue("store"))
	if err != nil {
		h.writeDomainError(w, "update document", err)
		return
	}

	doc, err := h.search.UpdateDocument(r.Context(), key, store, r.PathValue("doc"), req.source(), req.options())
	if err != nil {
		h.writeDomainError(w, "update document", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: doc})
}

// DeleteDocument handles DELETE /api/v1/stores/{store}/documents/{doc}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	store, err := h.search.FindStore(r.Context(), key, r.PathValue("store"))
	if err != nil {
		h.writeDomainError(w, "delete document", err)
		return
	}

	name := r.PathValue("doc")
	doc, err := h.search.FindDocument(r.Context(), key, store, name)
	if err != nil {
		h.writeDomainError(w, "delete document", err)
		return
	}

	if err := h.search.DeleteDocument(r.Context(), key, doc); err != nil {
		h.writeDomainError(w, "delete document", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"deleted": name}})
}

// EnqueueIngest handles POST /api/v1/stores/{store}/ingest
// 将文件摄取任务投递到消息队列, 由 consumer 异步完成上传和索引
func (h *Handler) EnqueueIngest(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireKey(w, r); !ok {
		return
	}

	if h.queue == nil {
		h.writeError(w, http.StatusServiceUnavailable, "ingestion queue is not configured")
		return
	}

	var req struct {
		Path string               `json:"path"`
		Opts domain.UploadOptions `json:"opts,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Path == "" {
		h.writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	task := domain.IngestTask{
		ID:    uuid.NewString(),
		Store: r.PathValue("store"),
		Path:  req.Path,
		Opts:  req.Opts,
	}

	payload, err := json.Marshal(task)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.queue.Publish(h.ingestTopic, payload); err != nil {
		h.logger.Error("enqueue ingest failed", "task_id", task.ID, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "failed to enqueue ingestion task")
		return
	}

	h.writeJSON(w, http.StatusAccepted, Response{Success: true, Data: map[string]string{"task_id": task.ID}})
}

// queryRequest is the JSON body for grounded queries
type queryRequest struct {
	Query             string                   `json:"query"`
	Stores            []string                 `json:"stores,omitempty"` // additional store display names
	MetadataFilter    string                   `json:"metadata_filter,omitempty"`
	Model             string                   `json:"model,omitempty"`
	SystemInstruction string                   `json:"system_instruction,omitempty"`
	Generation        *domain.GenerationParams `json:"generation,omitempty"`
	SafetySettings    []domain.SafetySetting   `json:"safety_settings,omitempty"`
}

// Query handles POST /api/v1/stores/{store}/query
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	key, ok := h.requireKey(w, r)
	if !ok {
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// 路径中的 store 加上请求体中的补充 store 一起解析为资源 id
	names := append([]string{r.PathValue("store")}, req.Stores...)

	var storeIDs []string
	for _, name := range names {
		store, err := h.search.FindStore(r.Context(), key, name)
		if err != nil {
			h.writeDomainError(w, "query", err)
			return
		}
		storeIDs = append(storeIDs, store.ID)
	}

	result, err := h.search.Query(r.Context(), key, &domain.QueryRequest{
		Query:             req.Query,
		StoreIDs:          storeIDs,
		MetadataFilter:    req.MetadataFilter,
		Model:             req.Model,
		SystemInstruction: req.SystemInstruction,
		Generation:        req.Generation,
		SafetySettings:    req.SafetySettings,
	})
	if err != nil {
		h.writeDomainError(w, "query", err)
		return
	}

	h.writeJSON(w, http.StatusOK, Response{Success: true, Data: result})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: map[string]string{
			"status": "healthy",
		},
	})
}

// requireKey rejects requests without an API key
func (h *Handler) requireKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key := apiKey(r)
	if key == "" {
		h.writeError(w, http.StatusUnauthorized, "api key is required")
		return "", false
	}
	return key, true
}

// statusForError translates structured errors into HTTP status codes
func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	}

	switch domain.StatusOf(err) {
	case http.StatusUnauthorized:
		return http.StatusUnauthorized
	case http.StatusForbidden:
		return http.StatusForbidden
	case http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case http.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	}

	return http.StatusInternalServerError
}

// writeDomainError logs and writes a translated error response
func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", "error", err)
	} else {
		h.logger.Warn(op+" failed", "status", status, "error", err)
	}
	h.writeError(w, status, err.Error())
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, Response{
		Success: false,
		Error:   message,
	})
}
