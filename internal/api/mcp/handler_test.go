package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/filesearch/internal/action"
	"github.com/Zereker/filesearch/internal/cache"
	"github.com/Zereker/filesearch/pkg/retry"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// stubClient 单库单文档的上游桩
type stubClient struct{}

var _ upstream.Client = (*stubClient)(nil)

func (s *stubClient) CreateStore(ctx context.Context, displayName string) (*upstream.Store, error) {
	return &upstream.Store{Name: "stores/abc", DisplayName: displayName}, nil
}

func (s *stubClient) ListStores(ctx context.Context, pageSize int, pageToken string) (*upstream.StorePage, error) {
	return &upstream.StorePage{
		Stores: []upstream.Store{{Name: "stores/abc", DisplayName: "docs-en", DocumentCount: 2, SizeBytes: 4096}},
	}, nil
}

func (s *stubClient) DeleteStore(ctx context.Context, name string) error { return nil }

func (s *stubClient) UploadDocument(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
	return &upstream.Operation{
		Name: "operations/op1",
		Done: true,
		Response: map[string]any{
			"document": map[string]any{"name": "stores/abc/documents/d1", "displayName": req.DisplayName},
		},
	}, nil
}

func (s *stubClient) GetOperation(ctx context.Context, name string) (*upstream.Operation, error) {
	return &upstream.Operation{Name: name, Done: true}, nil
}

func (s *stubClient) ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*upstream.DocumentPage, error) {
	return &upstream.DocumentPage{
		Documents: []upstream.Document{{Name: "stores/abc/documents/d1", DisplayName: "guide.md"}},
	}, nil
}

func (s *stubClient) DeleteDocument(ctx context.Context, name string) error { return nil }

func (s *stubClient) GenerateContent(ctx context.Context, req *upstream.GenerateRequest) (*upstream.GenerateResponse, error) {
	return &upstream.GenerateResponse{
		Candidates: []upstream.Candidate{{
			Content: &upstream.Content{Parts: []upstream.Part{{Text: "grounded answer"}}},
			GroundingMetadata: &upstream.GroundingMetadata{
				GroundingChunks: []upstream.GroundingChunk{
					{RetrievedContext: &upstream.RetrievedContext{Title: "guide.md", Text: "cited passage"}},
				},
			},
		}},
	}, nil
}

func newTestMCPHandler() *Handler {
	search := action.New(func(string) upstream.Client { return &stubClient{} }, cache.NewMemory(), action.Config{
		Retry: retry.Config{MaxRetries: 1, BaseDelay: "1ms"},
		Poll:  retry.PollConfig{Interval: "1ms", MaxAttempts: 5},
	})
	return NewHandler(search, "service-key")
}

func callTool(t *testing.T, h *Handler, name string, args any) ToolCallResponse {
	t.Helper()

	payload, err := json.Marshal(args)
	require.NoError(t, err)

	return h.HandleToolCall(context.Background(), ToolCallRequest{Name: name, Arguments: payload})
}

func TestUnknownTool(t *testing.T) {
	resp := callTool(t, newTestMCPHandler(), "memory_add", map[string]any{})
	assert.True(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "unknown tool")
}

func TestStoreListTool(t *testing.T) {
	resp := callTool(t, newTestMCPHandler(), "store_list", map[string]any{})
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "docs-en")
	assert.Contains(t, resp.Content[0].Text, "2 个文档")
}

func TestDocumentListTool(t *testing.T) {
	resp := callTool(t, newTestMCPHandler(), "document_list", map[string]string{"store": "docs-en"})
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "guide.md")
}

func TestQueryToolIncludesCitations(t *testing.T) {
	resp := callTool(t, newTestMCPHandler(), "file_search_query", map[string]any{
		"query":  "How do I install?",
		"stores": []string{"docs-en"},
	})
	assert.False(t, resp.IsError)
	assert.Contains(t, resp.Content[0].Text, "grounded answer")
	assert.Contains(t, resp.Content[0].Text, "引用来源")
	assert.Contains(t, resp.Content[0].Text, "guide.md")
}

func TestToolDefinitionsHaveSchemas(t *testing.T) {
	names := make(map[string]bool)
	for _, tool := range FileSearchTools {
		assert.NotEmpty(t, tool.Description)
		assert.Equal(t, "object", tool.InputSchema.Type)
		names[tool.Name] = true
	}

	for _, required := range []string{"store_create", "store_list", "store_delete", "document_upload", "document_list", "document_delete", "file_search_query"} {
		assert.True(t, names[required], "缺少工具定义: %s", required)
	}
}
