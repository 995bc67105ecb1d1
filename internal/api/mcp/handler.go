package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Zereker/filesearch/internal/action"
	"github.com/Zereker/filesearch/internal/domain"
)

// Handler handles MCP tool calls
type Handler struct {
	search *action.FileSearch
	apiKey string
}

// NewHandler creates a new MCP handler, apiKey 为服务级密钥
func NewHandler(search *action.FileSearch, apiKey string) *Handler {
	return &Handler{
		search: search,
		apiKey: apiKey,
	}
}

// ToolCallRequest represents an MCP tool call request
type ToolCallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolCallResponse represents an MCP tool call response
type ToolCallResponse struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock represents a content block in the response
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// HandleToolCall handles an MCP tool call
func (h *Handler) HandleToolCall(ctx context.Context, req ToolCallRequest) ToolCallResponse {
	switch req.Name {
	case "store_create":
		return h.handleStoreCreate(ctx, req.Arguments)
	case "store_list":
		return h.handleStoreList(ctx)
	case "store_delete":
		return h.handleStoreDelete(ctx, req.Arguments)
	case "document_upload":
		return h.handleDocumentUpload(ctx, req.Arguments)
	case "document_list":
		return h.handleDocumentList(ctx, req.Arguments)
	case "document_delete":
		return h.handleDocumentDelete(ctx, req.Arguments)
	case "file_search_query":
		return h.handleQuery(ctx, req.Arguments)
	default:
		return errorResponse(fmt.Sprintf("unknown tool: %s", req.Name))
	}
}

// handleStoreCreate handles store_create tool call
func (h *Handler) handleStoreCreate(ctx context.Context, args json.RawMessage) ToolCallResponse {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return errorResponse(fmt.Sprintf("invalid arguments: %v", err))
	}

	store, err := h.search.EnsureStore(ctx, h.apiKey, req.DisplayName)
	if err != nil {
		return errorResponse(fmt.Sprintf("create store failed: %v", err))
	}

	return successResponse(fmt.Sprintf("知识库就绪: %s (%s)", store.DisplayName, store.ID))
}

// handleStoreList handles store_list tool call
func (h *Handler) handleStoreList(ctx context.Context) ToolCallResponse {
	stores, err := h.search.ListStores(ctx, h.apiKey)
	if err != nil {
		return errorResponse(fmt.Sprintf("list stores failed: %v", err))
	}

	if len(stores) == 0 {
		return successResponse("没有找到任何知识库。")
	}

	var parts []string
	for _, store := range stores {
		parts = append(parts, fmt.Sprintf("- %s: %d 个文档, %d 字节", store.DisplayName, store.DocumentCount, store.SizeBytes))
	}

	return successResponse(strings.Join(parts, "\n"))
}

// handleStoreDelete handles store_delete tool call
func (h *Handler) handleStoreDelete(ctx context.Context, args json.RawMessage) ToolCallResponse {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return errorResponse(fmt.Sprintf("invalid arguments: %v", err))
	}

	store, err := h.search.FindStore(ctx, h.apiKey, req.DisplayName)
	if err != nil {
		return errorResponse(fmt.Sprintf("delete store failed: %v", err))
	}

	if err := h.search.DeleteStore(ctx, h.apiKey, store); err != nil {
		return errorResponse(fmt.Sprintf("delete store failed: %v", err))
	}

	return successResponse(fmt.Sprintf("成功删除知识库: %s", req.DisplayName))
}

// handleDocumentUpload handles document_upload tool call
func (h *Handler) handleDocumentUpload(ctx context.Context, args json.RawMessage) ToolCallResponse {
	var req struct {
		Store       string `json:"store"`
		Path        string `json:"path"`
		DisplayName string `json:"display_name"`
		MimeType    string `json:"mime_type"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return errorResponse(fmt.Sprintf("invalid arguments: %v", err))
	}

	store, err := h.search.EnsureStore(ctx, h.apiKey, req.Store)
	if err != nil {
		return errorResponse(fmt.Sprintf("upload failed: %v", err))
	}

	doc, err := h.search.UploadDocument(ctx, h.apiKey, store,
		domain.UploadSource{Path: req.Path},
		domain.UploadOptions{DisplayName: req.DisplayName, MimeType: req.MimeType},
	)
	if err != nil {
		return errorResponse(fmt.Sprintf("upload failed: %v", err))
	}

	return successResponse(fmt.Sprintf("成功上传文档: %s (%s)", doc.Label(), doc.ID))
}

// handleDocumentList handles document_list tool call
func (h *Handler) handleDocumentList(ctx context.Context, args json.RawMessage) ToolCallResponse {
	var req struct {
		Store string `json:"store"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return errorResponse(fmt.Sprintf("invalid arguments: %v", err))
	}

	store, err := h.search.FindStore(ctx, h.apiKey, req.Store)
	if err != nil {
		return errorResponse(fmt.Sprintf("list documents failed: %v", err))
	}

	docs, err := h.search.ListDocuments(ctx, h.apiKey, store)
	if err != nil {
		return errorResponse(fmt.Sprintf("list documents failed: %v", err))
	}

	if len(docs) == 0 {
		return successResponse(fmt.Sprintf("知识库 %s 中没有文档。", req.Store))
	}

	var parts []string
	for _, doc := range docs {
		parts = append(parts, fmt.Sprintf("- %s (%s)", doc.Label(), doc.ID))
	}

	return successResponse(strings.Join(parts, "\n"))
}

// handleDocumentDelete handles document_delete tool call
func (h *Handler) handleDocumentDelete(ctx context.Context, args json.RawMessage) ToolCallResponse {
	var req struct {
		Store       string `json:"store"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return errorResponse(fmt.Sprintf("invalid arguments: %v", err))
	}

	store, err := h.search.FindStore(ctx, h.apiKey, req.Store)
	if err != nil {
		return errorResponse(fmt.Sprintf("delete document failed: %v", err))
	}

	doc, err := h.search.FindDocument(ctx, h.apiKey, store, req.DisplayName)
	if err != nil {
		return errorResponse(fmt.Sprintf("delete document failed: %v", err))
	}

	if err := h.search.DeleteDocument(ctx, h.apiKey, doc); err != nil {
		return errorResponse(fmt.Sprintf("delete document failed: %v", err))
	}

	return successResponse(fmt.Sprintf("成功删除文档: %s", req.DisplayName))
}

// handleQuery handles file_search_query tool call
func (h *Handler) handleQuery(ctx context.Context, args json.RawMessage) ToolCallResponse {
	var req struct {
		Query          string   `json:"query"`
		Stores         []string `json:"stores"`
		MetadataFilter string   `json:"metadata_filter"`
		Model          string   `json:"model"`
	}
	if err := json.Unmarshal(args, &req); err != nil {
		return errorResponse(fmt.Sprintf("invalid arguments: %v", err))
	}

	var storeIDs []string
	for _, name := range req.Stores {
		store, err := h.search.FindStore(ctx, h.apiKey, name)
		if err != nil {
			return errorResponse(fmt.Sprintf("query failed: %v", err))
		}
		storeIDs = append(storeIDs, store.ID)
	}

	result, err := h.search.Query(ctx, h.apiKey, &domain.QueryRequest{
		Query:          req.Query,
		StoreIDs:       storeIDs,
		MetadataFilter: req.MetadataFilter,
		Model:          req.Model,
	})
	if err != nil {
		return errorResponse(fmt.Sprintf("query failed: %v", err))
	}

	return successResponse(formatQueryResult(result))
}

// formatQueryResult 格式化查询结果, 附带引用来源
func formatQueryResult(result *domain.QueryResult) string {
	if result.Text == "" {
		return "没有找到相关的内容。"
	}

	var parts []string
	parts = append(parts, result.Text)

	if result.Grounding != nil && len(result.Grounding.CitedChunks) > 0 {
		parts = append(parts, "\n## 引用来源")
		for _, chunk := range result.Grounding.CitedChunks {
			title := chunk.Title
			if title == "" {
				title = chunk.Source
			}
			parts = append(parts, fmt.Sprintf("- [%s] %s", title, truncate(chunk.Text, 100)))
		}
	}

	return strings.Join(parts, "\n")
}

// Helper functions

func successResponse(text string) ToolCallResponse {
	return ToolCallResponse{
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
	}
}

func errorResponse(text string) ToolCallResponse {
	return ToolCallResponse{
		Content: []ContentBlock{
			{Type: "text", Text: text},
		},
		IsError: true,
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
