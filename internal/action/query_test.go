package action

import (
	"context"
	"testing"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// TestQueryValidation 空查询或空目标库直接失败
func TestQueryValidation(t *testing.T) {
	mock := NewMockClient()
	search, _ := newTestSearch(mock)
	ctx := context.Background()

	cases := []struct {
		name string
		req  *domain.QueryRequest
	}{
		{"nil request", nil},
		{"blank query", &domain.QueryRequest{Query: "   ", StoreIDs: []string{"stores/abc"}}},
		{"no stores", &domain.QueryRequest{Query: "How do I install?"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := search.Query(ctx, "key", c.req)
			if domain.KindOf(err) != domain.KindValidation {
				t.Errorf("期望 Validation，实际 %v", err)
			}
		})
	}

	if len(mock.GenerateCalls) != 0 {
		t.Error("校验失败不应调用生成接口")
	}
}

// TestQueryRequestShape 检索工具、系统指令与过滤表达式按约定组装
func TestQueryRequestShape(t *testing.T) {
	mock := NewMockClient()
	search, _ := newTestSearch(mock)

	_, err := search.Query(context.Background(), "key", &domain.QueryRequest{
		Query:          "How do I install?",
		StoreIDs:       []string{"stores/abc", "stores/def"},
		MetadataFilter: `language="en"`,
	})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}

	if len(mock.GenerateCalls) != 1 {
		t.Fatalf("期望 1 次生成调用，实际 %d", len(mock.GenerateCalls))
	}
	req := mock.GenerateCalls[0]

	if req.Model != DefaultModel {
		t.Errorf("缺省模型应为 %s，实际 %s", DefaultModel, req.Model)
	}
	if len(req.Tools) != 1 || req.Tools[0].FileSearch == nil {
		t.Fatal("应携带唯一的 file search tool")
	}
	tool := req.Tools[0].FileSearch
	if len(tool.StoreNames) != 2 || tool.StoreNames[0] != "stores/abc" {
		t.Errorf("检索范围不正确: %v", tool.StoreNames)
	}
	if tool.MetadataFilter != `language="en"` {
		t.Errorf("过滤表达式应原样透传，实际 %s", tool.MetadataFilter)
	}
	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != defaultSystemInstruction {
		t.Error("缺省系统指令不正确")
	}
	if req.GenerationConfig != nil {
		t.Error("未提供生成参数时不应下发 generationConfig")
	}
	if len(req.SafetySettings) != 0 {
		t.Error("未提供安全策略时不应下发 safetySettings")
	}
}

// TestQueryCustomParams 显式模型、指令与生成参数透传
func TestQueryCustomParams(t *testing.T) {
	mock := NewMockClient()
	search, _ := newTestSearch(mock)

	temperature := 0.2
	maxTokens := 1024

	_, err := search.Query(context.Background(), "key", &domain.QueryRequest{
		Query:             "Summarize the changelog",
		StoreIDs:          []string{"stores/abc"},
		Model:             "doubao-lite-4k",
		SystemInstruction: "Answer in one sentence.",
		Generation: &domain.GenerationParams{
			Temperature:     &temperature,
			MaxOutputTokens: &maxTokens,
		},
		SafetySettings: []domain.SafetySetting{
			{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_ONLY_HIGH"},
		},
	})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}

	req := mock.GenerateCalls[0]
	if req.Model != "doubao-lite-4k" {
		t.Errorf("期望 doubao-lite-4k，实际 %s", req.Model)
	}
	if req.SystemInstruction.Parts[0].Text != "Answer in one sentence." {
		t.Error("显式系统指令未透传")
	}
	if req.GenerationConfig == nil || *req.GenerationConfig.Temperature != 0.2 || *req.GenerationConfig.MaxOutputTokens != 1024 {
		t.Errorf("生成参数透传不正确: %+v", req.GenerationConfig)
	}
	if len(req.SafetySettings) != 1 || req.SafetySettings[0].Category != "HARM_CATEGORY_HATE_SPEECH" {
		t.Errorf("安全策略透传不正确: %+v", req.SafetySettings)
	}
}

// TestQueryEmptyCandidates 模型无输出返回空串，不视为错误
func TestQueryEmptyCandidates(t *testing.T) {
	mock := NewMockClient()
	search, _ := newTestSearch(mock)

	result, err := search.Query(context.Background(), "key", &domain.QueryRequest{
		Query:    "Anything at all?",
		StoreIDs: []string{"stores/abc"},
	})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if result.Text != "" {
		t.Errorf("期望空文本，实际 %q", result.Text)
	}
	if result.Grounding != nil {
		t.Error("无候选时不应有引用元数据")
	}
}

// TestQueryExtractsGrounding 拼接多段文本并提取引用分块
func TestQueryExtractsGrounding(t *testing.T) {
	mock := NewMockClient()
	mock.GenerateContentFunc = func(ctx context.Context, req *upstream.GenerateRequest) (*upstream.GenerateResponse, error) {
		return &upstream.GenerateResponse{
			Candidates: []upstream.Candidate{
				{
					Content: &upstream.Content{
						Role:  "model",
						Parts: []upstream.Part{{Text: "Install with "}, {Text: "`go get`."}},
					},
					GroundingMetadata: &upstream.GroundingMetadata{
						GroundingChunks: []upstream.GroundingChunk{
							{RetrievedContext: &upstream.RetrievedContext{
								DocumentName: "stores/abc/documents/d1",
								Title:        "install.md",
								Text:         "Run go get to install.",
							}},
							{RetrievedContext: nil}, // 缺失上下文的分块被跳过
						},
						SearchQueries: []string{"install instructions"},
					},
				},
				// 第二个候选被忽略
				{Content: &upstream.Content{Parts: []upstream.Part{{Text: "ignored"}}}},
			},
		}, nil
	}
	search, _ := newTestSearch(mock)

	result, err := search.Query(context.Background(), "key", &domain.QueryRequest{
		Query:    "How do I install?",
		StoreIDs: []string{"stores/abc"},
	})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}

	if result.Text != "Install with `go get`." {
		t.Errorf("多段文本应拼接，实际 %q", result.Text)
	}
	if result.Grounding == nil {
		t.Fatal("应提取引用元数据")
	}
	if len(result.Grounding.CitedChunks) != 1 {
		t.Fatalf("期望 1 个引用分块，实际 %d", len(result.Grounding.CitedChunks))
	}
	chunk := result.Grounding.CitedChunks[0]
	if chunk.Source != "stores/abc/documents/d1" || chunk.Title != "install.md" {
		t.Errorf("引用分块不正确: %+v", chunk)
	}
	if len(result.Grounding.SearchQueries) != 1 {
		t.Errorf("检索查询应透出，实际 %v", result.Grounding.SearchQueries)
	}
}

// TestQueryRetriesTransient 生成调用的瞬时失败经重试后成功
func TestQueryRetriesTransient(t *testing.T) {
	calls := 0
	mock := NewMockClient()
	mock.GenerateContentFunc = func(ctx context.Context, req *upstream.GenerateRequest) (*upstream.GenerateResponse, error) {
		calls++
		if calls == 1 {
			return nil, &upstream.APIError{StatusCode: 503, Message: "overloaded"}
		}
		return &upstream.GenerateResponse{
			Candidates: []upstream.Candidate{{Content: &upstream.Content{Parts: []upstream.Part{{Text: "ok"}}}}},
		}, nil
	}
	search, _ := newTestSearch(mock)

	result, err := search.Query(context.Background(), "key", &domain.QueryRequest{
		Query:    "still there?",
		StoreIDs: []string{"stores/abc"},
	})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("期望 ok，实际 %q", result.Text)
	}
	if calls != 2 {
		t.Errorf("期望重试 1 次共 2 次调用，实际 %d", calls)
	}
}
