package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_LevelAndFormat(t *testing.T) {
	log := logrus.New()

	closer, err := setup(log, Config{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)
}

func TestSetup_Defaults(t *testing.T) {
	log := logrus.New()

	_, err := setup(log, Config{})
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, log.Formatter)
}

func TestSetup_InvalidConfig(t *testing.T) {
	_, err := setup(logrus.New(), Config{Level: "loud"})
	assert.Error(t, err)

	_, err = setup(logrus.New(), Config{Format: "xml"})
	assert.Error(t, err)
}

func TestSetup_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "md.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	log := logrus.New()
	closer, err := setup(log, Config{Level: "info", File: path})
	require.NoError(t, err)

	log.WithField("component", "test").Info("order book is added")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "previous run", "log file should be appended to")
	assert.Contains(t, string(content), "order book is added")
	assert.Contains(t, string(content), "component=test")
}
