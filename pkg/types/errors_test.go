package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolErrorMessage(t *testing.T) {
	t.Parallel()

	err := NewToolError(ErrorKindQueryExecution, "statement failed: %s", "syntax error")
	assert.Equal(t, "query_execution_error: statement failed: syntax error", err.Error())
}

func TestNewInvalidArguments(t *testing.T) {
	t.Parallel()

	t.Run("missing argument names the field", func(t *testing.T) {
		err := NewInvalidArguments("catalog", nil)
		assert.Equal(t, ErrorKindInvalidArguments, err.Kind)
		assert.Contains(t, err.Message, `missing required argument "catalog"`)
	})

	t.Run("malformed argument includes the cause", func(t *testing.T) {
		err := NewInvalidArguments("query", errors.New("must be a string"))
		assert.Equal(t, ErrorKindInvalidArguments, err.Kind)
		assert.Contains(t, err.Message, `invalid argument "query"`)
		assert.Contains(t, err.Message, "must be a string")
	})
}

func TestAsToolError(t *testing.T) {
	t.Parallel()

	t.Run("typed errors pass through unchanged", func(t *testing.T) {
		original := NewUnknownTool("drop_tables")
		got := AsToolError(original)
		assert.Same(t, original, got)
	})

	t.Run("wrapped typed errors are unwrapped", func(t *testing.T) {
		original := NewUnknownResource("databricks://nope")
		got := AsToolError(fmt.Errorf("reading resource: %w", original))
		assert.Same(t, original, got)
	})

	t.Run("untyped errors become internal_error", func(t *testing.T) {
		got := AsToolError(errors.New("boom"))
		assert.Equal(t, ErrorKindInternal, got.Kind)
		assert.Equal(t, "boom", got.Message)
	})
}

func TestParseToolError(t *testing.T) {
	t.Parallel()

	t.Run("round trips a serialized envelope", func(t *testing.T) {
		original := NewToolError(ErrorKindQueryTimeout, "statement did not complete within 30s")
		body, err := json.Marshal(original)
		require.NoError(t, err)

		parsed, ok := ParseToolError(body)
		require.True(t, ok)
		assert.Equal(t, original.Kind, parsed.Kind)
		assert.Equal(t, original.Message, parsed.Message)
	})

	t.Run("rejects non-envelope payloads", func(t *testing.T) {
		for _, payload := range []string{"", "not json", `{"error": "missing kind"}`, `[]`} {
			_, ok := ParseToolError([]byte(payload))
			assert.False(t, ok, "payload %q should not parse", payload)
		}
	})
}

func TestParseToolErrorText(t *testing.T) {
	t.Parallel()

	t.Run("recovers kind and message from the string form", func(t *testing.T) {
		te, ok := ParseToolErrorText(NewInvalidArguments("question", nil).Error())
		require.True(t, ok)
		assert.Equal(t, ErrorKindInvalidArguments, te.Kind)
		assert.Equal(t, `missing required argument "question"`, te.Message)
	})

	t.Run("tolerates transport prefixes", func(t *testing.T) {
		te, ok := ParseToolErrorText("request failed: unknown_resource: unknown resource URI: databricks://nope")
		require.True(t, ok)
		assert.Equal(t, ErrorKindUnknownResource, te.Kind)
		assert.Equal(t, "unknown resource URI: databricks://nope", te.Message)
	})

	t.Run("unrelated text does not parse", func(t *testing.T) {
		for _, text := range []string{"", "connection reset by peer", "invalid_arguments"} {
			_, ok := ParseToolErrorText(text)
			assert.False(t, ok, "text %q should not parse", text)
		}
	})
}
