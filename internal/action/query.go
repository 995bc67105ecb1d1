package action

import (
	"context"
	"strings"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// defaultSystemInstruction 调用方未提供 system instruction 时的内置提示词
const defaultSystemInstruction = "You are a documentation assistant. Answer strictly from the retrieved documents. " +
	"Format answers as concise Markdown and present multi-step answers as ordered lists. " +
	"If the documents do not contain the answer, say so."

// Query 执行检索增强生成查询
// 检索范围限定到给定库，metadata filter 原样透传（语法由上游定义，本层不解析）；
// 生成文本为空返回空串而非错误
func (f *FileSearch) Query(ctx context.Context, apiKey string, req *domain.QueryRequest) (*domain.QueryResult, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, domain.Validationf("query text is required")
	}
	if len(req.StoreIDs) == 0 {
		return nil, domain.Validationf("at least one target store is required")
	}

	generateReq := f.buildGenerateRequest(req)

	client := f.clients(apiKey)

	var resp *upstream.GenerateResponse
	err := f.exec.Do(ctx, func(ctx context.Context) error {
		r, err := client.GenerateContent(ctx, generateReq)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(err, "generate content failed")
	}

	result := extractResult(resp)

	f.logger.Info("query completed",
		"stores", len(req.StoreIDs),
		"model", generateReq.Model,
		"text_len", len(result.Text),
		"cited_chunks", citedChunkCount(result),
	)

	return result, nil
}

// buildGenerateRequest 组装生成请求：检索工具 + 系统指令 + 可选生成参数
func (f *FileSearch) buildGenerateRequest(req *domain.QueryRequest) *upstream.GenerateRequest {
	model := req.Model
	if model == "" {
		model = f.model
	}

	instruction := req.SystemInstruction
	if instruction == "" {
		instruction = defaultSystemInstruction
	}

	generateReq := &upstream.GenerateRequest{
		Model: model,
		Contents: []upstream.Content{
			{Role: "user", Parts: []upstream.Part{{Text: req.Query}}},
		},
		Tools: []upstream.Tool{
			{FileSearch: &upstream.FileSearchTool{
				StoreNames:     req.StoreIDs,
				MetadataFilter: req.MetadataFilter,
			}},
		},
		SystemInstruction: &upstream.Content{
			Parts: []upstream.Part{{Text: instruction}},
		},
	}

	// 生成参数与安全策略仅在非空时下发
	if req.Generation != nil {
		generateReq.GenerationConfig = &upstream.GenerationConfig{
			Temperature:     req.Generation.Temperature,
			MaxOutputTokens: req.Generation.MaxOutputTokens,
			TopP:            req.Generation.TopP,
			TopK:            req.Generation.TopK,
		}
	}

	if len(req.SafetySettings) > 0 {
		settings := make([]upstream.SafetySetting, 0, len(req.SafetySettings))
		for _, s := range req.SafetySettings {
			settings = append(settings, upstream.SafetySetting{Category: s.Category, Threshold: s.Threshold})
		}
		generateReq.SafetySettings = settings
	}

	return generateReq
}

// extractResult 从首个候选中提取文本与引用元数据
func extractResult(resp *upstream.GenerateResponse) *domain.QueryResult {
	result := &domain.QueryResult{}

	if resp == nil || len(resp.Candidates) == 0 {
		return result
	}

	primary := resp.Candidates[0]

	if primary.Content != nil {
		var sb strings.Builder
		for _, part := range primary.Content.Parts {
			sb.WriteString(part.Text)
		}
		result.Text = sb.String()
	}

	if gm := primary.GroundingMetadata; gm != nil {
		grounding := &domain.GroundingMetadata{
			SearchQueries: gm.SearchQueries,
		}

		for _, chunk := range gm.GroundingChunks {
			if chunk.RetrievedContext == nil {
				continue
			}
			grounding.CitedChunks = append(grounding.CitedChunks, domain.CitedChunk{
				Source: chunk.RetrievedContext.DocumentName,
				Title:  chunk.RetrievedContext.Title,
				Text:   chunk.RetrievedContext.Text,
			})
		}

		if len(grounding.CitedChunks) > 0 || len(grounding.SearchQueries) > 0 {
			result.Grounding = grounding
		}
	}

	return result
}

func citedChunkCount(result *domain.QueryResult) int {
	if result.Grounding == nil {
		return 0
	}
	return len(result.Grounding.CitedChunks)
}
