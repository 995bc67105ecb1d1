package mcp

// Tool represents an MCP tool definition
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema defines the JSON schema for tool input
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a property in the schema
type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Default     any                 `json:"default,omitempty"`
}

// FileSearchTools defines all available MCP tools for file search operations
var FileSearchTools = []Tool{
	{
		Name:        "store_create",
		Description: "创建知识库。如果同名知识库已存在则直接返回已有的。",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"display_name": {
					Type:        "string",
					Description: "知识库名称",
				},
			},
			Required: []string{"display_name"},
		},
	},
	{
		Name:        "store_list",
		Description: "列出所有知识库及其文档数量和大小。",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{},
		},
	},
	{
		Name:        "store_delete",
		Description: "删除知识库及其全部文档。",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"display_name": {
					Type:        "string",
					Description: "知识库名称",
				},
			},
			Required: []string{"display_name"},
		},
	},
	{
		Name:        "document_upload",
		Description: "上传本地文件到知识库并等待索引完成。知识库不存在时自动创建。",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"store": {
					Type:        "string",
					Description: "知识库名称",
				},
				"path": {
					Type:        "string",
					Description: "本地文件路径",
				},
				"display_name": {
					Type:        "string",
					Description: "文档显示名称（默认取文件名）",
				},
				"mime_type": {
					Type:        "string",
					Description: "MIME 类型（默认按扩展名推断）",
				},
			},
			Required: []string{"store", "path"},
		},
	},
	{
		Name:        "document_list",
		Description: "列出知识库中的所有文档。",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"store": {
					Type:        "string",
					Description: "知识库名称",
				},
			},
			Required: []string{"store"},
		},
	},
	{
		Name:        "document_delete",
		Description: "按显示名称删除知识库中的文档。",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"store": {
					Type:        "string",
					Description: "知识库名称",
				},
				"display_name": {
					Type:        "string",
					Description: "文档显示名称",
				},
			},
			Required: []string{"store", "display_name"},
		},
	},
	{
		Name:        "file_search_query",
		Description: "在知识库中检索并生成带引用的回答。",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "查询内容",
				},
				"stores": {
					Type:        "array",
					Description: "要检索的知识库名称列表",
					Items:       &Property{Type: "string"},
				},
				"metadata_filter": {
					Type:        "string",
					Description: "元数据过滤表达式（原样透传给检索端）",
				},
				"model": {
					Type:        "string",
					Description: "生成模型（默认使用服务配置）",
				},
			},
			Required: []string{"query", "stores"},
		},
	},
}
