package action

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Zereker/filesearch/internal/cache"
	"github.com/Zereker/filesearch/internal/domain"
	"github.com/Zereker/filesearch/pkg/retry"
	"github.com/Zereker/filesearch/pkg/upstream"
)

// 默认值
const (
	DefaultPageSize = 10
	DefaultModel    = "doubao-pro-32k"
)

// ClientFactory 按 API Key 构造上游客户端；每次调用由调用方提供 Key
type ClientFactory func(apiKey string) upstream.Client

// Config 核心编排层配置
type Config struct {
	PageSize int              `toml:"page_size"` // 远端分页大小，默认 10
	Model    string           `toml:"model"`     // 默认生成模型
	Retry    retry.Config     `toml:"retry"`
	Poll     retry.PollConfig `toml:"poll"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return c.Poll.Validate()
}

func (c Config) pageSize() int {
	if c.PageSize <= 0 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c Config) model() string {
	if c.Model == "" {
		return DefaultModel
	}
	return c.Model
}

// FileSearch 搜索库编排入口：解析库、入库文档、执行检索增强查询
// 除共享的 store cache 外无状态；所有远端调用经过重试器
type FileSearch struct {
	logger *slog.Logger

	clients ClientFactory
	cache   cache.Store
	exec    *retry.Executor
	poller  *retry.Poller

	// miss-then-create 路径按 display name 合并并发请求，避免重复建库
	flight singleflight.Group

	pageSize int
	model    string
}

// New 创建 FileSearch 实例
func New(clients ClientFactory, store cache.Store, cfg Config) *FileSearch {
	return &FileSearch{
		logger:   slog.Default().With("module", "filesearch"),
		clients:  clients,
		cache:    store,
		exec:     retry.New(cfg.Retry),
		poller:   retry.NewPoller(cfg.Poll),
		pageSize: cfg.pageSize(),
		model:    cfg.model(),
	}
}

// ============================================================================
// wire <-> domain 转换
// ============================================================================

// parseTime 解析上游时间戳，缺失或非法时取 now（补全上游省略的字段）
func parseTime(value string, now time.Time) time.Time {
	if value == "" {
		return now
	}

	for _, format := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	return now
}

func storeFromWire(ws *upstream.Store) *domain.StoreDescriptor {
	now := time.Now()
	return &domain.StoreDescriptor{
		ID:            ws.Name,
		DisplayName:   ws.DisplayName,
		CreateTime:    parseTime(ws.CreateTime, now),
		UpdateTime:    parseTime(ws.UpdateTime, now),
		DocumentCount: ws.DocumentCount,
		SizeBytes:     ws.SizeBytes,
	}
}

func documentFromWire(wd *upstream.Document) *domain.DocumentDescriptor {
	now := time.Now()
	return &domain.DocumentDescriptor{
		ID:          wd.Name,
		DisplayName: wd.DisplayName,
		CreateTime:  parseTime(wd.CreateTime, now),
		UpdateTime:  parseTime(wd.UpdateTime, now),
		MimeType:    wd.MimeType,
		SizeBytes:   wd.SizeBytes,
		Metadata:    wd.Metadata,
	}
}
