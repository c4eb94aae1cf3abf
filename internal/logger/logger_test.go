package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("release", func(t *testing.T) {
		t.Setenv("GIN_MODE", "release")
		var buf bytes.Buffer
		l := New(&buf, "")
		require.Equal(t, logrus.InfoLevel, l.GetLevel())

		l.WithField("component", "test").Info("hello")
		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		require.Equal(t, "hello", line["message"])
		require.Equal(t, "test", line["component"])
	})

	t.Run("debug", func(t *testing.T) {
		t.Setenv("GIN_MODE", "debug")
		l := New(&bytes.Buffer{}, "")
		require.Equal(t, logrus.DebugLevel, l.GetLevel())
	})

	t.Run("override", func(t *testing.T) {
		t.Setenv("GIN_MODE", "release")
		l := New(&bytes.Buffer{}, "warn")
		require.Equal(t, logrus.WarnLevel, l.GetLevel())

		l = New(&bytes.Buffer{}, "verbose")
		require.Equal(t, logrus.InfoLevel, l.GetLevel())
	})
}
