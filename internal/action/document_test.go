package action

import (
	"context"
	"fmt"
	"testing"

	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// TestFindDocumentPaginated 分页扫描到目标文档
func TestFindDocumentPaginated(t *testing.T) {
	var documents []upstream.Document
	for i := 0; i < 25; i++ {
		documents = append(documents, upstream.Document{
			Name:        fmt.Sprintf("stores/abc/documents/d%02d", i),
			DisplayName: fmt.Sprintf("doc-%02d.md", i),
		})
	}

	mock := NewMockClient()
	mock.ListDocumentsFunc = pagedDocuments(documents)
	search, _ := newTestSearch(mock)

	doc, err := search.FindDocument(context.Background(), "key", testStore(), "doc-17.md")
	if err != nil {
		t.Fatalf("查找失败: %v", err)
	}
	if doc.ID != "stores/abc/documents/d17" {
		t.Errorf("期望 d17，实际 %s", doc.ID)
	}
	if mock.ListDocumentsCalls != 2 {
		t.Errorf("目标在第二页，期望 2 次请求，实际 %d 次", mock.ListDocumentsCalls)
	}
}

// TestFindDocumentNotFound 穷尽分页未命中返回 NotFound
func TestFindDocumentNotFound(t *testing.T) {
	mock := NewMockClient()
	search, _ := newTestSearch(mock)

	_, err := search.FindDocument(context.Background(), "key", testStore(), "missing.txt")
	if !domain.IsNotFound(err) {
		t.Fatalf("期望 NotFound，实际 %v", err)
	}
}

// TestListDocumentsLabelFallback display name 缺失时退化为资源名末段
func TestListDocumentsLabelFallback(t *testing.T) {
	mock := NewMockClient()
	mock.ListDocumentsFunc = pagedDocuments([]upstream.Document{
		{Name: "stores/abc/documents/d1", DisplayName: "guide.md"},
		{Name: "stores/abc/documents/d2"},
	})
	search, _ := newTestSearch(mock)

	docs, err := search.ListDocuments(context.Background(), "key", testStore())
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("期望 2 个文档，实际 %d", len(docs))
	}
	if docs[0].DisplayName != "guide.md" {
		t.Errorf("期望 guide.md，实际 %s", docs[0].DisplayName)
	}
	if docs[1].DisplayName != "d2" {
		t.Errorf("display name 缺失应退化为 d2，实际 %s", docs[1].DisplayName)
	}
}

// TestDeleteDocumentValidation 空描述符直接失败
func TestDeleteDocumentValidation(t *testing.T) {
	mock := NewMockClient()
	search, _ := newTestSearch(mock)

	err := search.DeleteDocument(context.Background(), "key", nil)
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("期望 Validation，实际 %v", err)
	}
	if len(mock.DeleteDocumentCalls) != 0 {
		t.Error("校验失败不应调用远端")
	}
}

// TestUpdateDocumentReplacesOld 先上传新内容，成功后删除旧文档
func TestUpdateDocumentReplacesOld(t *testing.T) {
	mock := NewMockClient()
	mock.ListDocumentsFunc = pagedDocuments([]upstream.Document{
		{Name: "stores/abc/documents/old", DisplayName: "guide.md"},
	})
	mock.UploadDocumentFunc = func(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
		return &upstream.Operation{
			Name: "operations/op1",
			Done: true,
			Response: map[string]any{
				"document": map[string]any{"name": "stores/abc/documents/new", "displayName": req.DisplayName},
			},
		}, nil
	}
	search, _ := newTestSearch(mock)

	doc, err := search.UpdateDocument(context.Background(), "key", testStore(), "guide.md",
		domain.UploadSource{Data: []byte("# v2")},
		domain.UploadOptions{},
	)
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}

	if doc.ID != "stores/abc/documents/new" {
		t.Errorf("期望新文档 id，实际 %s", doc.ID)
	}
	if mock.UploadCalls[0].DisplayName != "guide.md" {
		t.Errorf("替换内容应沿用原展示名，实际 %s", mock.UploadCalls[0].DisplayName)
	}
	if len(mock.DeleteDocumentCalls) != 1 || mock.DeleteDocumentCalls[0] != "stores/abc/documents/old" {
		t.Errorf("期望删除旧文档 old，实际 %v", mock.DeleteDocumentCalls)
	}
}

// TestUpdateDocumentFirstUpload 旧文档不存在时等价于首次上传
func TestUpdateDocumentFirstUpload(t *testing.T) {
	mock := NewMockClient()
	mock.UploadDocumentFunc = func(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
		return &upstream.Operation{
			Name: "operations/op1",
			Done: true,
			Response: map[string]any{
				"document": map[string]any{"name": "stores/abc/documents/d1", "displayName": req.DisplayName},
			},
		}, nil
	}
	search, _ := newTestSearch(mock)

	doc, err := search.UpdateDocument(context.Background(), "key", testStore(), "guide.md",
		domain.UploadSource{Data: []byte("# v1")},
		domain.UploadOptions{},
	)
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if doc.ID != "stores/abc/documents/d1" {
		t.Errorf("期望 d1，实际 %s", doc.ID)
	}
	if len(mock.DeleteDocumentCalls) != 0 {
		t.Errorf("首次上传不应删除任何文档，实际 %v", mock.DeleteDocumentCalls)
	}
}

// TestUpdateDocumentUploadFails 上传失败时旧文档原样保留
func TestUpdateDocumentUploadFails(t *testing.T) {
	mock := NewMockClient()
	mock.ListDocumentsFunc = pagedDocuments([]upstream.Document{
		{Name: "stores/abc/documents/old", DisplayName: "guide.md"},
	})
	mock.UploadDocumentFunc = func(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
		return nil, &upstream.APIError{StatusCode: 403, Message: "permission denied"}
	}
	search, _ := newTestSearch(mock)

	_, err := search.UpdateDocument(context.Background(), "key", testStore(), "guide.md",
		domain.UploadSource{Data: []byte("# v2")},
		domain.UploadOptions{},
	)
	if err == nil {
		t.Fatal("期望更新失败")
	}
	if len(mock.DeleteDocumentCalls) != 0 {
		t.Errorf("新内容未就绪不应删除旧文档，实际 %v", mock.DeleteDocumentCalls)
	}
}

// TestUpdateDocumentCleanupFailure 新文档就绪但旧文档清理失败：返回新文档和错误
func TestUpdateDocumentCleanupFailure(t *testing.T) {
	mock := NewMockClient()
	mock.ListDocumentsFunc = pagedDocuments([]upstream.Document{
		{Name: "stores/abc/documents/old", DisplayName: "guide.md"},
	})
	mock.UploadDocumentFunc = func(ctx context.Context, storeName string, req *upstream.UploadRequest) (*upstream.Operation, error) {
		return &upstream.Operation{
			Name: "operations/op1",
			Done: true,
			Response: map[string]any{
				"document": map[string]any{"name": "stores/abc/documents/new", "displayName": req.DisplayName},
			},
		}, nil
	}
	mock.DeleteDocumentFunc = func(ctx context.Context, name string) error {
		return &upstream.APIError{StatusCode: 502, Message: "gateway error"}
	}
	search, _ := newTestSearch(mock)

	doc, err := search.UpdateDocument(context.Background(), "key", testStore(), "guide.md",
		domain.UploadSource{Data: []byte("# v2")},
		domain.UploadOptions{},
	)
	if err == nil {
		t.Fatal("清理失败应返回错误")
	}
	if doc == nil || doc.ID != "stores/abc/documents/new" {
		t.Errorf("清理失败仍应返回已就绪的新文档，实际 %+v", doc)
	}
}
