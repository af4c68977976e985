package zerolog

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/raykavin/pricewatch/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var out bytes.Buffer
	log, err := NewWithWriter(&out, logger.Options{Level: "info", JSON: true})
	require.NoError(t, err)

	log.WithField("asset", "bitcoin").WithError(errors.New("boom")).Warn("price unavailable")
	log.Debug("dropped")

	var line map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "bitcoin", line["asset"])
	require.Equal(t, "boom", line["error"])
	require.Equal(t, "price unavailable", line["message"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var out bytes.Buffer
	log, err := NewWithWriter(&out, logger.Options{Level: "debug"})
	require.NoError(t, err)

	log.WithFields(map[string]any{"user": 1}).Infof("tracking %s", "bitcoin")
	require.Contains(t, out.String(), "tracking bitcoin")
	require.Contains(t, out.String(), "user=1")
}

func TestNewWithWriter_BadLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, logger.Options{Level: "loud"})
	require.Error(t, err)
}

func TestAdapter_Level(t *testing.T) {
	log, err := NewWithWriter(&bytes.Buffer{}, logger.Options{Level: "warn", JSON: true})
	require.NoError(t, err)
	require.Equal(t, logger.WarnLevel, log.GetLevel())

	log.SetLevel(logger.DebugLevel)
	require.Equal(t, logger.DebugLevel, log.GetLevel())
}
