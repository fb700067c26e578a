package worker

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestAsynqLoggerWritesThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	l := asynqLogger{logger: zerolog.New(&buf).Level(zerolog.InfoLevel)}

	l.Debug("hidden")
	l.Info("starting processing", " ", 3)
	l.Warn("retrying")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"level":"info","message":"starting processing 3"`)
	assert.Contains(t, out, `"level":"warn","message":"retrying"`)
}
