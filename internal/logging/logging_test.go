package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btc-price-tracker/internal/config"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOutput(config.Log{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("currency", "usd").Info("fetched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "fetched", line["msg"])
	assert.Equal(t, "usd", line["currency"])
}

func TestNewWithOutput_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithOutput(config.Log{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithOutput_BadLevel(t *testing.T) {
	_, err := NewWithOutput(config.Log{Level: "loud"}, &bytes.Buffer{})
	require.ErrorContains(t, err, "log.level")
}
