package accesslog

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestLogRequestWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	ts := time.Date(2000, time.October, 10, 13, 55, 36, 0, time.FixedZone("", -7*3600))
	l.LogRequest(Record{ClientIP: "10.0.0.1", Method: "GET", URL: "/x", Protocol: "HTTP/1.1", Status: 200, Timestamp: ts})

	assert.Equal(t, "10.0.0.1 - - [10/Oct/2000:13:55:36 -0700] \"GET /x HTTP/1.1\" 200 - \"-\" \"-\"\n", buf.String())
}

func TestLogRequestRecoversFromFormatPanic(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.format = func(Record) string { panic("boom") }

	require.NotPanics(t, func() {
		l.LogRequest(Record{ClientIP: "10.0.0.1", Status: 302})
	})
	assert.Equal(t, "10.0.0.1 - - [-] \"- - -\" 302 - \"-\" \"-\"\n", buf.String())
}

func TestLogRequestSwallowsWriteErrors(t *testing.T) {
	l := New(failingWriter{})
	assert.NotPanics(t, func() {
		l.LogRequest(Record{ClientIP: "10.0.0.1", Method: "GET", URL: "/", Status: 200, Timestamp: time.Now()})
	})
}

func TestLogRequestConcurrentLinesStayWhole(t *testing.T) {
	buf := &syncBuffer{}
	l := New(buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.LogRequest(Record{ClientIP: "10.0.0.1", Method: "GET", URL: "/c", Status: 200, Timestamp: time.Now()})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 50)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "10.0.0.1 - - ["), line)
	}
}

func TestFallbackLineDropsUnsafeAddress(t *testing.T) {
	assert.Equal(t, `- - - [-] "- - -" 403 - "-" "-"`, fallbackLine(Record{ClientIP: "1.2.3.4\" x", Status: 403}))
}
