package action

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Zereker/filesearch/internal/cache"
	"github.com/Zereker/filesearch/pkg/retry"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// MockClient 用于测试的上游客户端 mock
// 实现 upstream.Client 接口，按需覆盖 Func 字段并通过 Calls 计数验证调用次数
type MockClient struct {
	mu sync.Mutex

	CreateStoreFunc     func(ctx context.Context, displayName string) (*upstream.Store, error)
	ListStoresFunc      func(ctx context.Context, pageSize int, pageToken string) (*upstream.StorePage, error)
	DeleteStoreFunc     func(ctx context.Context, name string) error
	UploadDocumentFunc  func(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error)
	GetOperationFunc    func(ctx context.Context, name string) (*upstream.Operation, error)
	ListDocumentsFunc   func(ctx context.Context, storeName string, pageSize int, pageToken string) (*upstream.DocumentPage, error)
	DeleteDocumentFunc  func(ctx context.Context, name string) error
	GenerateContentFunc func(ctx context.Context, req *upstream.GenerateRequest) (*upstream.GenerateResponse, error)

	CreateStoreCalls    int
	ListStoresCalls     int
	DeleteStoreCalls    []string
	UploadCalls         []*upstream.UploadRequest
	GetOperationCalls   int
	ListDocumentsCalls  int
	DeleteDocumentCalls []string
	GenerateCalls       []*upstream.GenerateRequest
}

var _ upstream.Client = (*MockClient)(nil)

func NewMockClient() *MockClient {
	return &MockClient{
		CreateStoreFunc: func(ctx context.Context, displayName string) (*upstream.Store, error) {
			return &upstream.Store{Name: "stores/" + displayName, DisplayName: displayName}, nil
		},
		ListStoresFunc: func(ctx context.Context, pageSize int, pageToken string) (*upstream.StorePage, error) {
			return &upstream.StorePage{}, nil
		},
		DeleteStoreFunc: func(ctx context.Context, name string) error {
			return nil
		},
		UploadDocumentFunc: func(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
			return &upstream.Operation{Name: "operations/op", Done: true}, nil
		},
		GetOperationFunc: func(ctx context.Context, name string) (*upstream.Operation, error) {
			return &upstream.Operation{Name: name, Done: true}, nil
		},
		ListDocumentsFunc: func(ctx context.Context, storeName string, pageSize int, pageToken string) (*upstream.DocumentPage, error) {
			return &upstream.DocumentPage{}, nil
		},
		DeleteDocumentFunc: func(ctx context.Context, name string) error {
			return nil
		},
		GenerateContentFunc: func(ctx context.Context, req *upstream.GenerateRequest) (*upstream.GenerateResponse, error) {
			return &upstream.GenerateResponse{}, nil
		},
	}
}

func (m *MockClient) CreateStore(ctx context.Context, displayName string) (*upstream.Store, error) {
	m.mu.Lock()
	m.CreateStoreCalls++
	m.mu.Unlock()
	return m.CreateStoreFunc(ctx, displayName)
}

func (m *MockClient) ListStores(ctx context.Context, pageSize int, pageToken string) (*upstream.StorePage, error) {
	m.mu.Lock()
	m.ListStoresCalls++
	m.mu.Unlock()
	return m.ListStoresFunc(ctx, pageSize, pageToken)
}

func (m *MockClient) DeleteStore(ctx context.Context, name string) error {
	m.mu.Lock()
	m.DeleteStoreCalls = append(m.DeleteStoreCalls, name)
	m.mu.Unlock()
	return m.DeleteStoreFunc(ctx, name)
}

func (m *MockClient) UploadDocument(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
	m.mu.Lock()
	m.UploadCalls = append(m.UploadCalls, req)
	m.mu.Unlock()
	return m.UploadDocumentFunc(ctx, storeName, req)
}

func (m *MockClient) GetOperation(ctx context.Context, name string) (*upstream.Operation, error) {
	m.mu.Lock()
	m.GetOperationCalls++
	m.mu.Unlock()
	return m.GetOperationFunc(ctx, name)
}

func (m *MockClient) ListDocuments(ctx context.Context, storeName string, pageSize int, pageToken string) (*upstream.DocumentPage, error) {
	m.mu.Lock()
	m.ListDocumentsCalls++
	m.mu.Unlock()
	return m.ListDocumentsFunc(ctx, storeName, pageSize, pageToken)
}

func (m *MockClient) DeleteDocument(ctx context.Context, name string) error {
	m.mu.Lock()
	m.DeleteDocumentCalls = append(m.DeleteDocumentCalls, name)
	m.mu.Unlock()
	return m.DeleteDocumentFunc(ctx, name)
}

func (m *MockClient) GenerateContent(ctx context.Context, req *upstream.GenerateRequest) (*upstream.GenerateResponse, error) {
	m.mu.Lock()
	m.GenerateCalls = append(m.GenerateCalls, req)
	m.mu.Unlock()
	return m.GenerateContentFunc(ctx, req)
}

// newTestSearch 构造测试用 FileSearch，重试与轮询间隔压缩到毫秒级
func newTestSearch(client upstream.Client) (*FileSearch, *cache.Memory) {
	store := cache.NewMemory()
	search := New(func(string) upstream.Client { return client }, store, Config{
		Retry: retry.Config{MaxRetries: 1, BaseDelay: "1ms"},
		Poll:  retry.PollConfig{Interval: "1ms", MaxAttempts: 50},
	})
	return search, store
}

// pagedStores 构造按 pageSize 分页返回 n 个库的 ListStoresFunc
// pageToken 形如 "offset:K"
func pagedStores(stores []upstream.Store) func(ctx context.Context, pageSize int, pageToken string) (*upstream.StorePage, error) {
	return func(ctx context.Context, pageSize int, pageToken string) (*upstream.StorePage, error) {
		offset := 0
		if pageToken != "" {
			parsed, err := strconv.Atoi(pageToken)
			if err != nil {
				return nil, fmt.Errorf("bad page token: %s", pageToken)
			}
			offset = parsed
		}

		end := offset + pageSize
		if end > len(stores) {
			end = len(stores)
		}

		page := &upstream.StorePage{Stores: stores[offset:end]}
		if end < len(stores) {
			page.NextPageToken = strconv.Itoa(end)
		}
		return page, nil
	}
}

// pagedDocuments 构造分页返回文档列表的 ListDocumentsFunc
func pagedDocuments(documents []upstream.Document) func(ctx context.Context, storeName string, pageSize int, pageToken string) (*upstream.DocumentPage, error) {
	return func(ctx context.Context, storeName string, pageSize int, pageToken string) (*upstream.DocumentPage, error) {
		offset := 0
		if pageToken != "" {
			parsed, err := strconv.Atoi(pageToken)
			if err != nil {
				return nil, fmt.Errorf("bad page token: %s", pageToken)
			}
			offset = parsed
		}

		end := offset + pageSize
		if end > len(documents) {
			end = len(documents)
		}

		page := &upstream.DocumentPage{Documents: documents[offset:end]}
		if end < len(documents) {
			page.NextPageToken = strconv.Itoa(end)
		}
		return page, nil
	}
}
