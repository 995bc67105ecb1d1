package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentLabel(t *testing.T) {
	t.Run("prefers display name", func(t *testing.T) {
		doc := DocumentDescriptor{ID: "stores/s1/documents/d1", DisplayName: "guide.md"}
		assert.Equal(t, "guide.md", doc.Label())
	})

	t.Run("falls back to trailing id segment", func(t *testing.T) {
		doc := DocumentDescriptor{ID: "stores/s1/documents/d1"}
		assert.Equal(t, "d1", doc.Label())
	})

	t.Run("bare id without slashes", func(t *testing.T) {
		doc := DocumentDescriptor{ID: "d1"}
		assert.Equal(t, "d1", doc.Label())
	})
}

func TestUploadSourceBaseName(t *testing.T) {
	t.Run("name wins over path", func(t *testing.T) {
		src := UploadSource{Name: "notes.md", Path: "/data/other.txt"}
		assert.Equal(t, "notes.md", src.BaseName())
	})

	t.Run("base of path", func(t *testing.T) {
		src := UploadSource{Path: "/data/docs/readme.md"}
		assert.Equal(t, "readme.md", src.BaseName())
	})

	t.Run("windows separators", func(t *testing.T) {
		src := UploadSource{Path: `C:\data\docs\readme.md`}
		assert.Equal(t, "readme.md", src.BaseName())
	})

	t.Run("empty source", func(t *testing.T) {
		assert.Equal(t, "", UploadSource{}.BaseName())
	})
}

func TestDefaultChunking(t *testing.T) {
	cfg := DefaultChunking()
	assert.Equal(t, 500, cfg.MaxTokensPerChunk)
	assert.Equal(t, 50, cfg.MaxOverlapTokens)
}

func TestMetadataConstructors(t *testing.T) {
	t.Run("string value", func(t *testing.T) {
		m := MetaString("language", "en")
		assert.Equal(t, "language", m.Key)
		assert.Equal(t, "en", *m.StringValue)
		assert.Nil(t, m.NumericValue)
		assert.Nil(t, m.StringListValue)
	})

	t.Run("numeric value", func(t *testing.T) {
		m := MetaNumber("version", 3)
		assert.Equal(t, float64(3), *m.NumericValue)
		assert.Nil(t, m.StringValue)
	})

	t.Run("string list value", func(t *testing.T) {
		m := MetaStringList("tags", "go", "search")
		assert.Equal(t, []string{"go", "search"}, m.StringListValue.Values)
		assert.Nil(t, m.StringValue)
		assert.Nil(t, m.NumericValue)
	})
}
