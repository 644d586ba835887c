package merge

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := NewProgressTracker(logger, 2)

	p.Update(5, 5, 0)
	p.Finish(5, 5, 0)
	assert.Zero(t, p.Elapsed(), "not started")
	assert.Empty(t, buf.String())

	p.Start()
	p.Update(1, 1, 0)
	assert.NotContains(t, buf.String(), "merge progress")
	p.Update(2, 1, 1)
	assert.Contains(t, buf.String(), "msg=\"merge progress\" read=2 merged=1 skipped=1")

	p.Finish(3, 2, 1)
	assert.Contains(t, buf.String(), "msg=\"merge finished\" read=3 merged=2 skipped=1")
	assert.Positive(t, p.Elapsed())
}

func TestProgressTracker_DisabledInterval(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressTracker(slog.New(slog.NewTextHandler(&buf, nil)), 0)

	p.Start()
	p.Update(100, 100, 0)
	assert.NotContains(t, buf.String(), "merge progress")
}
