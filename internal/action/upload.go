package action

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/retry"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// mimeByExtension 扩展名到 MIME 类型的固定映射，未知类型回落到二进制流
var mimeByExtension = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".text":     "text/plain",
	".pdf":      "application/pdf",
	".csv":      "text/csv",
	".json":     "application/json",
	".html":     "text/html",
	".htm":      "text/html",
	".doc":      "application/msword",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":      "application/vnd.ms-excel",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":      "application/vnd.ms-powerpoint",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// inferMimeType 按文件扩展名推断 MIME 类型
func inferMimeType(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// UploadDocument 上传文件并等待索引完成
// 启动入库作业后按固定间隔轮询异步操作直到 done，超出轮询预算返回 Timeout
func (f *FileSearch) UploadDocument(ctx context.Context, apiKey string, store *domain.StoreDescriptor, src domain.UploadSource, opts domain.UploadOptions) (*domain.DocumentDescriptor, error) {
	if store == nil || store.ID == "" {
		return nil, domain.Validationf("store descriptor is required")
	}

	data := src.Data
	if data == nil && src.Path != "" {
		content, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, domain.Validationf("failed to read upload source: %v", err)
		}
		data = content
	}
	if len(data) == 0 {
		return nil, domain.Validationf("upload source is empty")
	}

	displayName := opts.DisplayName
	if displayName == "" {
		displayName = src.BaseName()
	}
	if displayName == "" {
		return nil, domain.Validationf("document display name is required")
	}

	mimeType := opts.MimeType
	if mimeType == "" {
		mimeType = inferMimeType(displayName)
	}

	chunking := domain.DefaultChunking()
	if opts.Chunking != nil {
		chunking = *opts.Chunking
	}

	req := &upstream.UploadRequest{
		DisplayName:    displayName,
		MimeType:       mimeType,
		Data:           data,
		CustomMetadata: metadataToWire(opts.Metadata),
		ChunkingConfig: &upstream.ChunkingConfig{
			MaxTokensPerChunk: chunking.MaxTokensPerChunk,
			MaxOverlapTokens:  chunking.MaxOverlapTokens,
		},
	}

	client := f.clients(apiKey)

	// 启动入库作业
	var op *upstream.Operation
	err := f.exec.Do(ctx, func(ctx context.Context) error {
		started, err := client.UploadDocument(ctx, store.ID, req)
		if err != nil {
			return err
		}
		op = started
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(err, "upload document failed")
	}

	f.logger.Info("upload started",
		"store", store.DisplayName,
		"display_name", displayName,
		"mime_type", mimeType,
		"size_bytes", len(data),
		"operation", op.Name,
	)

	// 轮询到终态
	if !op.Done {
		err = f.poller.Wait(ctx, func(ctx context.Context) (bool, error) {
			fetchErr := f.exec.Do(ctx, func(ctx context.Context) error {
				current, err := client.GetOperation(ctx, op.Name)
				if err != nil {
					return err
				}
				op = current
				return nil
			})
			if fetchErr != nil {
				return false, domain.Wrap(fetchErr, "fetch operation failed")
			}
			return op.Done, nil
		})
		if err != nil {
			if errors.Is(err, retry.ErrPollTimeout) {
				return nil, domain.Timeoutf("indexing of %q did not complete within polling budget", displayName)
			}
			return nil, err
		}
	}

	if op.Error != nil {
		return nil, domain.FromStatus(op.Error.Code, "indexing failed: "+op.Error.Message)
	}

	doc := documentFromOperation(op)
	if doc == nil {
		// 上游完成但未回传文档详情，用本地已知字段补全
		doc = documentFromWire(&upstream.Document{
			DisplayName: displayName,
			MimeType:    mimeType,
			SizeBytes:   int64(len(data)),
		})
	}

	f.logger.Info("upload completed", "store", store.DisplayName, "display_name", displayName, "id", doc.ID)
	return doc, nil
}

// metadataToWire 转换自定义元数据，每条恰好携带一种取值形态
func metadataToWire(entries []domain.CustomMetadata) []upstream.Metadata {
	if len(entries) == 0 {
		return nil
	}

	out := make([]upstream.Metadata, 0, len(entries))
	for _, entry := range entries {
		wire := upstream.Metadata{
			Key:          entry.Key,
			StringValue:  entry.StringValue,
			NumericValue: entry.NumericValue,
		}
		if entry.StringListValue != nil {
			wire.StringListValue = &upstream.StringList{Values: entry.StringListValue.Values}
		}
		out = append(out, wire)
	}
	return out
}
