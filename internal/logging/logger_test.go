package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterTagsAppAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "quizgen", "test", "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "game").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "quizgen", line["app"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, "game", line["component"])
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "quizgen", "test", "bogus")

	ctx := IntoContext(context.Background(), logger)
	l := FromContext(ctx)
	l.Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")

	buf.Reset()
	nop := FromContext(context.Background())
	nop.Info().Msg("dropped")
	assert.Empty(t, buf.String())
}
