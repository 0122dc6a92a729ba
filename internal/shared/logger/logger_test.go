package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"photoshoot-studio/internal/shared/contextkeys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLoggerInterface_Contract(t *testing.T) {
	var _ Logger = NewLogger()
	var _ Logger = NewLoggerWithConfig("info", "json")
	var _ Logger = NewNopLogger()
}

func TestLogrusLogger_ZapFieldsBecomeStructured(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("debug", "json", &buf)

	log.Error("save rolled back", zap.String("placeholder", "temp-1"), zap.Error(errors.New("boom")))

	line := decodeLine(t, &buf)
	assert.Equal(t, "save rolled back", line["message"])
	assert.Equal(t, "temp-1", line["placeholder"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "error", line["level"])
}

func TestLogrusLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("info", "json", &buf)

	ctx := context.WithValue(context.Background(), contextkeys.UserIDKey, "user1")
	ctx = context.WithValue(ctx, contextkeys.RouteKey, "/home")
	log.WithContext(ctx).Info("projected")

	line := decodeLine(t, &buf)
	assert.Equal(t, "user1", line["user_id"])
	assert.Equal(t, "/home", line["route"])
}

func TestLogrusLogger_WithComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("info", "json", &buf)

	log.WithComponent("reconciler").WithFields(map[string]interface{}{"kind": "photoshoot"}).Infof("n=%d", 3)

	line := decodeLine(t, &buf)
	assert.Equal(t, "reconciler", line["component"])
	assert.Equal(t, "photoshoot", line["kind"])
	assert.Equal(t, "n=3", line["message"])
}

func TestLogrusLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithOutput("warn", "json", &buf)
	log.Info("hidden")
	assert.Zero(t, buf.Len())
}

func TestSelectFormat(t *testing.T) {
	assert.Equal(t, "json", selectFormat("json", ""))
	assert.Equal(t, "json", selectFormat("", "production"))
	assert.Equal(t, "text", selectFormat("", "development"))
}
