package action

import (
	"context"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// FindDocument 按 display name 在库内查找文档
// 分页扫描文档列表，穷尽未命中返回 NotFound
func (f *FileSearch) FindDocument(ctx context.Context, apiKey string, store *domain.StoreDescriptor, displayName string) (*domain.DocumentDescriptor, error) {
	if store == nil || store.ID == "" {
		return nil, domain.Validationf("store descriptor is required")
	}
	if displayName == "" {
		return nil, domain.Validationf("document display name is required")
	}

	client := f.clients(apiKey)

	pageToken := ""
	for {
		var page *upstream.DocumentPage
		err := f.exec.Do(ctx, func(ctx context.Context) error {
			p, err := client.ListDocuments(ctx, store.ID, f.pageSize, pageToken)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, domain.Wrap(err, "list documents failed")
		}

		for i := range page.Documents {
			if page.Documents[i].DisplayName == displayName {
				return documentFromWire(&page.Documents[i]), nil
			}
		}

		if page.NextPageToken == "" {
			return nil, domain.NotFoundf("document not found in %s: %s", store.DisplayName, displayName)
		}
		pageToken = page.NextPageToken
	}
}

// ListDocuments 全量拉取库内文档列表
// display name 缺失的文档退化为资源名末段作为展示名
func (f *FileSearch) ListDocuments(ctx context.Context, apiKey string, store *domain.StoreDescriptor) ([]domain.DocumentDescriptor, error) {
	if store == nil || store.ID == "" {
		return nil, domain.Validationf("store descriptor is required")
	}

	client := f.clients(apiKey)

	var documents []domain.DocumentDescriptor

	pageToken := ""
	for {
		var page *upstream.DocumentPage
		err := f.exec.Do(ctx, func(ctx context.Context) error {
			p, err := client.ListDocuments(ctx, store.ID, f.pageSize, pageToken)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, domain.Wrap(err, "list documents failed")
		}

		for i := range page.Documents {
			doc := documentFromWire(&page.Documents[i])
			if doc.DisplayName == "" {
				doc.DisplayName = doc.Label()
			}
			documents = append(documents, *doc)
		}

		if page.NextPageToken == "" {
			return documents, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteDocument 强制删除文档
func (f *FileSearch) DeleteDocument(ctx context.Context, apiKey string, doc *domain.DocumentDescriptor) error {
	if doc == nil || doc.ID == "" {
		return domain.Validationf("document descriptor is required")
	}

	client := f.clients(apiKey)

	err := f.exec.Do(ctx, func(ctx context.Context) error {
		return client.DeleteDocument(ctx, doc.ID)
	})
	if err != nil {
		return domain.Wrap(err, "delete document failed")
	}

	f.logger.Info("document deleted", "display_name", doc.DisplayName, "id", doc.ID)
	return nil
}

// UpdateDocument 以新内容替换同名文档
// 先上传并索引新内容，确认成功后才删除旧文档：上传失败时旧文档原样保留，
// 不存在删除后无法重建的数据丢失窗口
func (f *FileSearch) UpdateDocument(ctx context.Context, apiKey string, store *domain.StoreDescriptor, displayName string, src domain.UploadSource, opts domain.UploadOptions) (*domain.DocumentDescriptor, error) {
	if displayName == "" {
		return nil, domain.Validationf("document display name is required")
	}

	// 查找旧文档，NotFound 视为首次上传
	existing, err := f.FindDocument(ctx, apiKey, store, displayName)
	if err != nil && !domain.IsNotFound(err) {
		return nil, err
	}

	opts.DisplayName = displayName
	replacement, err := f.UploadDocument(ctx, apiKey, store, src, opts)
	if err != nil {
		return nil, err
	}

	if existing != nil && existing.ID != "" && existing.ID != replacement.ID {
		if err := f.DeleteDocument(ctx, apiKey, existing); err != nil {
			// 新文档已就绪，旧文档清理失败：库内短暂出现两个同名文档
			f.logger.Warn("stale document left behind after update",
				"display_name", displayName,
				"stale_id", existing.ID,
				"new_id", replacement.ID,
			)
			return replacement, domain.Wrap(err, "replacement indexed but stale document cleanup failed")
		}
	}

	f.logger.Info("document updated", "store", store.DisplayName, "display_name", displayName, "id", replacement.ID)
	return replacement, nil
}
