package action

import (
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// documentFromOperation 从完成的异步操作结果中提取文档描述符
// 操作的 response 是松散的 map，用 mapstructure 按 wire tag 宽松解码
func documentFromOperation(op *upstream.Operation) *domain.DocumentDescriptor {
	if op == nil || op.Response == nil {
		return nil
	}

	raw, ok := op.Response["document"].(map[string]any)
	if !ok {
		return nil
	}

	var doc upstream.Document

	config := &mapstructure.DecoderConfig{
		Result:           &doc,
		TagName:          "json",
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		slog.Default().Error("failed to create operation decoder", "error", err)
		return nil
	}

	if err := decoder.Decode(raw); err != nil {
		slog.Default().Warn("failed to decode operation document", "operation", op.Name, "error", err)
		return nil
	}

	return documentFromWire(&doc)
}
