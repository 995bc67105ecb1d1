package domain

import (
	"path"
	"strings"
	"time"
)

// ============================================================================
// 搜索库（Store）
// ============================================================================

// StoreDescriptor 远端搜索库描述符
// ID 是上游资源名（如 "stores/abc123"），DisplayName 在活跃库中全局唯一（由上游保证）
type StoreDescriptor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreateTime  time.Time `json:"create_time"`
	UpdateTime  time.Time `json:"update_time"`

	// 统计信息（上游可能不返回）
	DocumentCount int64 `json:"document_count,omitempty"`
	SizeBytes     int64 `json:"size_bytes,omitempty"`
}

// ============================================================================
// 文档（Document）
// ============================================================================

// DocumentDescriptor 搜索库内的单个文档
type DocumentDescriptor struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreateTime  time.Time `json:"create_time"`
	UpdateTime  time.Time `json:"update_time"`

	MimeType  string            `json:"mime_type,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Label 返回展示用名称；DisplayName 缺失时退化为资源名的末段
func (d *DocumentDescriptor) Label() string {
	if d.DisplayName != "" {
		return d.DisplayName
	}
	if idx := strings.LastIndex(d.ID, "/"); idx >= 0 {
		return d.ID[idx+1:]
	}
	return d.ID
}

// ============================================================================
// 自定义元数据
// ============================================================================

// CustomMetadata 上传时附加的元数据条目
// 三种取值形态互斥：StringValue / NumericValue / StringListValue 恰好设置一个
type CustomMetadata struct {
	Key             string      `json:"key"`
	StringValue     *string     `json:"string_value,omitempty"`
	NumericValue    *float64    `json:"numeric_value,omitempty"`
	StringListValue *StringList `json:"string_list_value,omitempty"`
}

// StringList 字符串列表取值
type StringList struct {
	Values []string `json:"values"`
}

// MetaString 构造字符串元数据
func MetaString(key, value string) CustomMetadata {
	return CustomMetadata{Key: key, StringValue: &value}
}

// MetaNumber 构造数值元数据
func MetaNumber(key string, value float64) CustomMetadata {
	return CustomMetadata{Key: key, NumericValue: &value}
}

// MetaStringList 构造字符串列表元数据
func MetaStringList(key string, values ...string) CustomMetadata {
	return CustomMetadata{Key: key, StringListValue: &StringList{Values: values}}
}

// ============================================================================
// 分块与上传
// ============================================================================

// 分块默认值
const (
	DefaultMaxTokensPerChunk = 500
	DefaultMaxOverlapTokens  = 50
)

// ChunkingConfig 文档分块配置
type ChunkingConfig struct {
	MaxTokensPerChunk int `json:"max_tokens_per_chunk"`
	MaxOverlapTokens  int `json:"max_overlap_tokens"`
}

// DefaultChunking 返回默认分块配置
func DefaultChunking() ChunkingConfig {
	return ChunkingConfig{
		MaxTokensPerChunk: DefaultMaxTokensPerChunk,
		MaxOverlapTokens:  DefaultMaxOverlapTokens,
	}
}

// UploadSource 上传内容来源：本地路径或内存数据二选一
type UploadSource struct {
	Path string `json:"path,omitempty"`
	Data []byte `json:"data,omitempty"`
	Name string `json:"name,omitempty"` // 内存数据的文件名
}

// BaseName 返回来源的基础文件名
func (s UploadSource) BaseName() string {
	if s.Name != "" {
		return path.Base(strings.ReplaceAll(s.Name, "\\", "/"))
	}
	if s.Path != "" {
		return path.Base(strings.ReplaceAll(s.Path, "\\", "/"))
	}
	return ""
}

// UploadOptions 上传选项，零值使用默认行为
type UploadOptions struct {
	DisplayName string           `json:"display_name,omitempty"` // 缺省取来源文件名
	MimeType    string           `json:"mime_type,omitempty"`    // 缺省按扩展名推断
	Metadata    []CustomMetadata `json:"metadata,omitempty"`
	Chunking    *ChunkingConfig  `json:"chunking,omitempty"` // 缺省 500/50
}

// ============================================================================
// 查询（检索增强生成）
// ============================================================================

// GenerationParams 生成参数，nil 字段不下发
type GenerationParams struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	TopK            *int     `json:"top_k,omitempty"`
}

// SafetySetting 安全策略配置，原样透传上游
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// QueryRequest 一次检索增强生成请求
type QueryRequest struct {
	Query    string   `json:"query"`
	StoreIDs []string `json:"store_ids"`

	// MetadataFilter 上游定义语法的过滤表达式（如 key="value"），本层不解析
	MetadataFilter string `json:"metadata_filter,omitempty"`

	Model             string            `json:"model,omitempty"`
	SystemInstruction string            `json:"system_instruction,omitempty"`
	Generation        *GenerationParams `json:"generation,omitempty"`
	SafetySettings    []SafetySetting   `json:"safety_settings,omitempty"`
}

// QueryResult 生成结果；Text 为空表示模型无输出，不视为错误
type QueryResult struct {
	Text      string             `json:"text"`
	Grounding *GroundingMetadata `json:"grounding,omitempty"`
}

// GroundingMetadata 引用元数据：生成文本与检索分块的关联
type GroundingMetadata struct {
	CitedChunks   []CitedChunk `json:"cited_chunks,omitempty"`
	SearchQueries []string     `json:"search_queries,omitempty"`
}

// CitedChunk 单个被引用的分块
type CitedChunk struct {
	Source string `json:"source,omitempty"` // 来源文档资源名
	Title  string `json:"title,omitempty"`
	Text   string `json:"text,omitempty"`
}

// ============================================================================
// 异步入库任务（消息队列）
// ============================================================================

// IngestTask 异步入库任务，经消息队列投递
type IngestTask struct {
	ID    string        `json:"id"`
	Store string        `json:"store"` // 搜索库 display name
	Path  string        `json:"path"`  // 待入库文件路径
	Opts  UploadOptions `json:"opts,omitempty"`
}
