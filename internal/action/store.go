package action

import (
	"context"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// FindStore 按 display name 解析搜索库
// 命中缓存时直接返回，不发起远端调用；未命中时分页扫描远端列表，
// 并发未命中请求经 singleflight 合并为一次扫描
func (f *FileSearch) FindStore(ctx context.Context, apiKey, displayName string) (*domain.StoreDescriptor, error) {
	if displayName == "" {
		return nil, domain.Validationf("store display name is required")
	}

	if store, ok := f.cache.Get(ctx, displayName); ok {
		return store, nil
	}

	v, err, _ := f.flight.Do("store:"+displayName, func() (any, error) {
		// 进入 flight 后再查一次缓存，合并窗口内可能已有请求完成
		if store, ok := f.cache.Get(ctx, displayName); ok {
			return store, nil
		}
		return f.findStoreRemote(ctx, apiKey, displayName)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.StoreDescriptor), nil
}

// findStoreRemote 分页扫描远端库列表，命中后写入缓存
func (f *FileSearch) findStoreRemote(ctx context.Context, apiKey, displayName string) (*domain.StoreDescriptor, error) {
	client := f.clients(apiKey)

	pageToken := ""
	for {
		var page *upstream.StorePage
		err := f.exec.Do(ctx, func(ctx context.Context) error {
			p, err := client.ListStores(ctx, f.pageSize, pageToken)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, domain.Wrap(err, "list stores failed")
		}

		for i := range page.Stores {
			if page.Stores[i].DisplayName != displayName {
				continue
			}

			store := storeFromWire(&page.Stores[i])
			f.cache.Set(ctx, displayName, store)

			f.logger.Debug("store resolved", "display_name", displayName, "id", store.ID)
			return store, nil
		}

		if page.NextPageToken == "" {
			return nil, domain.NotFoundf("store not found: %s", displayName)
		}
		pageToken = page.NextPageToken
	}
}

// CreateStore 创建搜索库并写入缓存
func (f *FileSearch) CreateStore(ctx context.Context, apiKey, displayName string) (*domain.StoreDescriptor, error) {
	if displayName == "" {
		return nil, domain.Validationf("store display name is required")
	}

	v, err, _ := f.flight.Do("store:"+displayName, func() (any, error) {
		return f.createStoreRemote(ctx, apiKey, displayName)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.StoreDescriptor), nil
}

func (f *FileSearch) createStoreRemote(ctx context.Context, apiKey, displayName string) (*domain.StoreDescriptor, error) {
	client := f.clients(apiKey)

	var created *upstream.Store
	err := f.exec.Do(ctx, func(ctx context.Context) error {
		s, err := client.CreateStore(ctx, displayName)
		if err != nil {
			return err
		}
		created = s
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(err, "create store failed")
	}

	store := storeFromWire(created)
	f.cache.Set(ctx, displayName, store)

	f.logger.Info("store created", "display_name", displayName, "id", store.ID)
	return store, nil
}

// EnsureStore 查找搜索库，不存在则创建
// 整个 miss-then-create 路径在同一个 flight key 内执行，
// 并发请求同名库时只有一个会触发远端创建
func (f *FileSearch) EnsureStore(ctx context.Context, apiKey, displayName string) (*domain.StoreDescriptor, error) {
	if displayName == "" {
		return nil, domain.Validationf("store display name is required")
	}

	if store, ok := f.cache.Get(ctx, displayName); ok {
		return store, nil
	}

	v, err, _ := f.flight.Do("store:"+displayName, func() (any, error) {
		if store, ok := f.cache.Get(ctx, displayName); ok {
			return store, nil
		}

		store, err := f.findStoreRemote(ctx, apiKey, displayName)
		if err == nil {
			return store, nil
		}
		if !domain.IsNotFound(err) {
			return nil, err
		}

		return f.createStoreRemote(ctx, apiKey, displayName)
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.StoreDescriptor), nil
}

// ListStores 全量拉取搜索库列表
// 始终绕过缓存以保证新鲜度，也不回填缓存
func (f *FileSearch) ListStores(ctx context.Context, apiKey string) ([]domain.StoreDescriptor, error) {
	client := f.clients(apiKey)

	var stores []domain.StoreDescriptor

	pageToken := ""
	for {
		var page *upstream.StorePage
		err := f.exec.Do(ctx, func(ctx context.Context) error {
			p, err := client.ListStores(ctx, f.pageSize, pageToken)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, domain.Wrap(err, "list stores failed")
		}

		for i := range page.Stores {
			stores = append(stores, *storeFromWire(&page.Stores[i]))
		}

		if page.NextPageToken == "" {
			return stores, nil
		}
		pageToken = page.NextPageToken
	}
}

// DeleteStore 强制删除搜索库
// 先删远端，成功后才移除缓存条目；远端失败时保留缓存
func (f *FileSearch) DeleteStore(ctx context.Context, apiKey string, store *domain.StoreDescriptor) error {
	if store == nil || store.ID == "" {
		return domain.Validationf("store descriptor is required")
	}

	client := f.clients(apiKey)

	err := f.exec.Do(ctx, func(ctx context.Context) error {
		return client.DeleteStore(ctx, store.ID)
	})
	if err != nil {
		return domain.Wrap(err, "delete store failed")
	}

	f.cache.Delete(ctx, store.DisplayName)

	f.logger.Info("store deleted", "display_name", store.DisplayName, "id", store.ID)
	return nil
}
