package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("default", func(t *testing.T) {
		t.Parallel()
		assert.Same(t, DefaultLogger(), FromContext(context.Background()))
	})

	t.Run("attached", func(t *testing.T) {
		t.Parallel()
		logger := zap.NewNop().Sugar()
		ctx := WithLogger(context.Background(), logger)
		assert.Same(t, logger, FromContext(ctx))
	})
}

func TestLevelToZapLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		in       string
		expected zapcore.Level
	}{
		{name: "empty", in: "", expected: zapcore.InfoLevel},
		{name: "debug", in: "debug", expected: zapcore.DebugLevel},
		{name: "warning", in: " WARNING ", expected: zapcore.WarnLevel},
		{name: "error", in: "ERROR", expected: zapcore.ErrorLevel},
		{name: "unknown", in: "verbose", expected: zapcore.InfoLevel},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, levelToZapLevel(test.in))
		})
	}
}
