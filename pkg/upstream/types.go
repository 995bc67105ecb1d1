package upstream

import "fmt"

// Wire types for the upstream indexing/generation service. All fields follow
// the upstream's camelCase JSON convention; timestamps stay RFC3339 strings on
// the wire and are normalized by the caller.

// Store is a remote search store resource
type Store struct {
	Name          string `json:"name"` // opaque resource name, e.g. "stores/abc123"
	DisplayName   string `json:"displayName"`
	CreateTime    string `json:"createTime,omitempty"`
	UpdateTime    string `json:"updateTime,omitempty"`
	DocumentCount int64  `json:"documentCount,omitempty"`
	SizeBytes     int64  `json:"sizeBytes,omitempty"`
}

// StorePage is one page of a store listing
type StorePage struct {
	Stores        []Store `json:"stores"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// Document is a remote document resource
type Document struct {
	Name        string            `json:"name"` // e.g. "stores/abc123/documents/def456"
	DisplayName string            `json:"displayName,omitempty"`
	CreateTime  string            `json:"createTime,omitempty"`
	UpdateTime  string            `json:"updateTime,omitempty"`
	MimeType    string            `json:"mimeType,omitempty"`
	SizeBytes   int64             `json:"sizeBytes,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// DocumentPage is one page of a document listing
type DocumentPage struct {
	Documents     []Document `json:"documents"`
	NextPageToken string     `json:"nextPageToken,omitempty"`
}

// Metadata is one custom metadata entry. Exactly one of StringValue,
// NumericValue, StringListValue is set.
type Metadata struct {
	Key             string      `json:"key"`
	StringValue     *string     `json:"stringValue,omitempty"`
	NumericValue    *float64    `json:"numericValue,omitempty"`
	StringListValue *StringList `json:"stringListValue,omitempty"`
}

// StringList wraps a string list metadata value
type StringList struct {
	Values []string `json:"values"`
}

// ChunkingConfig controls how the upstream splits a document
type ChunkingConfig struct {
	MaxTokensPerChunk int `json:"maxTokensPerChunk"`
	MaxOverlapTokens  int `json:"maxOverlapTokens"`
}

// UploadRequest starts an upload-and-index job
type UploadRequest struct {
	DisplayName    string          `json:"displayName"`
	MimeType       string          `json:"mimeType"`
	Data           []byte          `json:"data"` // base64 on the wire
	CustomMetadata []Metadata      `json:"customMetadata,omitempty"`
	ChunkingConfig *ChunkingConfig `json:"chunkingConfig,omitempty"`
}

// Operation is a long-running job handle observed via polling
type Operation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Response map[string]any  `json:"response,omitempty"`
	Error    *OperationError `json:"error,omitempty"`
}

// OperationError is the terminal failure of an async operation
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ============================================================================
// Generation
// ============================================================================

// GenerateRequest is a grounded generation call
type GenerateRequest struct {
	Model             string            `json:"-"` // part of the URL, not the body
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
	SafetySettings    []SafetySetting   `json:"safetySettings,omitempty"`
}

// Content is a role-tagged list of parts
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single content fragment
type Part struct {
	Text string `json:"text,omitempty"`
}

// Tool binds retrieval to one or more stores
type Tool struct {
	FileSearch *FileSearchTool `json:"fileSearch,omitempty"`
}

// FileSearchTool scopes retrieval to store resource names with an optional
// opaque metadata filter expression
type FileSearchTool struct {
	StoreNames     []string `json:"storeNames"`
	MetadataFilter string   `json:"metadataFilter,omitempty"`
}

// GenerationConfig carries optional sampling parameters
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
}

// SafetySetting is passed through to the upstream verbatim
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerateResponse is the generation result
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generation candidate
type Candidate struct {
	Content           *Content           `json:"content,omitempty"`
	GroundingMetadata *GroundingMetadata `json:"groundingMetadata,omitempty"`
}

// GroundingMetadata links generated text to retrieved chunks
type GroundingMetadata struct {
	GroundingChunks []GroundingChunk `json:"groundingChunks,omitempty"`
	SearchQueries   []string         `json:"searchQueries,omitempty"`
}

// GroundingChunk is one cited chunk with its source document reference
type GroundingChunk struct {
	RetrievedContext *RetrievedContext `json:"retrievedContext,omitempty"`
}

// RetrievedContext describes where a cited chunk came from
type RetrievedContext struct {
	DocumentName string `json:"documentName,omitempty"`
	Title        string `json:"title,omitempty"`
	Text         string `json:"text,omitempty"`
}

// ============================================================================
// Errors
// ============================================================================

// APIError is a non-2xx upstream response
type APIError struct {
	StatusCode int    `json:"code"`
	Status     string `json:"status,omitempty"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// UpstreamStatus returns the numeric HTTP status for retry classification
func (e *APIError) UpstreamStatus() int {
	return e.StatusCode
}
