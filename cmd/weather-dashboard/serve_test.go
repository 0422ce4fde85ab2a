package main

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-dashboard/internal/orchestrator"
	"github.com/i474232898/weather-dashboard/internal/render"
)

func TestViewSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	var buf bytes.Buffer

	sink := viewSink(logger, false, &buf)
	assert.IsType(t, &render.LogSink{}, sink)
	sink.Render(orchestrator.ViewState{Version: 1})
	assert.Empty(t, buf.String())
	require.Len(t, hook.Entries, 1)

	hook.Reset()
	sink = viewSink(logger, true, &buf)
	sink.Render(orchestrator.ViewState{Version: 2})
	assert.Contains(t, buf.String(), "Not logged in")
	require.Len(t, hook.Entries, 1)
	assert.Equal(t, uint64(2), hook.LastEntry().Data["version"])
}

func TestServeHasTTYFlag(t *testing.T) {
	cmd := newServeCmd()
	flag := cmd.Flags().Lookup("tty")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
}
