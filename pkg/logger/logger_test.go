package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := newLogger(Config{Level: "shouting", Encoding: "json"})
	assert.Error(t, err)
}

func TestNewLoggerEncodings(t *testing.T) {
	for _, encoding := range []string{"json", "console"} {
		l, err := newLogger(Config{Level: "debug", Encoding: encoding})
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestGetAlwaysReturnsLogger(t *testing.T) {
	l := Get()
	require.NotNil(t, l)
	assert.NotNil(t, With(zap.String("table", "raw_data")))
}
