package accesslog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRotator struct{ calls int }

func (c *countingRotator) Rotate() error {
	c.calls++
	return errors.New("not supported")
}

func TestNewRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.log")
	w := NewRotatingWriter(path)
	defer w.Close()

	assert.Equal(t, path, w.Filename)
	assert.True(t, w.Compress)

	l := New(w)
	l.LogRequest(Record{ClientIP: "10.0.0.1", Method: "GET", URL: "/", Status: 200})
	require.NoError(t, w.Rotate())
	assert.FileExists(t, path)
}

func TestScheduleRotation(t *testing.T) {
	r, err := ScheduleRotation("@daily", &countingRotator{})
	require.NoError(t, err)
	defer r.Stop()

	assert.Len(t, r.Cron.Entries(), 1)
}

func TestScheduleRotationInvalidSpec(t *testing.T) {
	_, err := ScheduleRotation("every full moon", &countingRotator{})
	assert.Error(t, err)
}
