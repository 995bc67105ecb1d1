package domain

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorConstructors(t *testing.T) {
	t.Run("not found carries 404", func(t *testing.T) {
		err := NotFoundf("store not found: %s", "docs-en")
		assert.Equal(t, KindNotFound, err.Kind)
		assert.Equal(t, 404, err.Status)
		assert.Equal(t, "store not found: docs-en", err.Error())
	})

	t.Run("validation has no upstream status", func(t *testing.T) {
		err := Validationf("display name is required")
		assert.Equal(t, KindValidation, err.Kind)
		assert.Equal(t, 0, err.UpstreamStatus())
	})

	t.Run("timeout is a client-side give-up", func(t *testing.T) {
		err := Timeoutf("polling budget exhausted")
		assert.Equal(t, KindTimeout, err.Kind)
		assert.Equal(t, 0, err.Status)
	})
}

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		kind   Kind
	}{
		{404, KindNotFound},
		{429, KindTransient},
		{500, KindTransient},
		{503, KindTransient},
		{400, KindUnknown},
		{401, KindUnknown},
		{403, KindUnknown},
		{502, KindUnknown},
	}

	for _, c := range cases {
		t.Run(fmt.Sprintf("status %d", c.status), func(t *testing.T) {
			err := FromStatus(c.status, "upstream failed")
			assert.Equal(t, c.kind, err.Kind)
			assert.Equal(t, c.status, err.Status)
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "ignored"))
	})

	t.Run("preserves kind and status of wrapped error", func(t *testing.T) {
		inner := NotFoundf("document not found")
		wrapped := Wrap(inner, "delete document failed")

		assert.Equal(t, KindNotFound, wrapped.Kind)
		assert.Equal(t, 404, wrapped.Status)
		assert.True(t, IsNotFound(wrapped))
		assert.ErrorIs(t, wrapped, inner)
	})

	t.Run("preserves kind across foreign wrapping layers", func(t *testing.T) {
		inner := FromStatus(429, "rate limited")
		layered := errors.WithMessage(inner, "list stores")
		wrapped := Wrap(layered, "find store failed")

		assert.Equal(t, KindTransient, wrapped.Kind)
		assert.Equal(t, 429, wrapped.Status)
	})

	t.Run("plain error becomes unknown", func(t *testing.T) {
		wrapped := Wrap(errors.New("connection reset"), "list stores failed")
		assert.Equal(t, KindUnknown, wrapped.Kind)
		assert.Equal(t, 0, wrapped.Status)
	})
}

// fakeStatusError 模拟携带状态码的外部错误类型
type fakeStatusError struct{ status int }

func (e *fakeStatusError) Error() string       { return fmt.Sprintf("status %d", e.status) }
func (e *fakeStatusError) UpstreamStatus() int { return e.status }

func TestStatusOf(t *testing.T) {
	t.Run("extracts status through wrapping", func(t *testing.T) {
		err := errors.WithMessage(&fakeStatusError{status: 503}, "outer")
		assert.Equal(t, 503, StatusOf(err))
	})

	t.Run("no status coder yields zero", func(t *testing.T) {
		assert.Equal(t, 0, StatusOf(errors.New("plain")))
	})
}

func TestKindChecks(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))

	assert.True(t, IsTransient(FromStatus(503, "busy")))
	assert.False(t, IsTransient(NotFoundf("missing")))
	assert.True(t, IsTimeout(Timeoutf("gave up")))
}
