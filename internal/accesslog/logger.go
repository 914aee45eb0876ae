package accesslog

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/gatekeeper/internal/logger"
	"github.com/Wikid82/gatekeeper/internal/metrics"
)

// lineFormatter writes the entry message verbatim, one per line.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	b := make([]byte, 0, len(e.Message)+1)
	b = append(b, e.Message...)
	return append(b, '\n'), nil
}

// Logger is the access log sink. It is safe for concurrent use.
type Logger struct {
	out    *logrus.Logger
	format func(Record) string
}

// New returns a Logger writing lines to w. A nil w means stdout.
func New(w io.Writer) *Logger {
	if w == nil {
		w = os.Stdout
	}
	out := logrus.New()
	out.SetOutput(&countingWriter{w: w})
	out.SetFormatter(lineFormatter{})
	out.SetLevel(logrus.InfoLevel)
	return &Logger{out: out, format: Format}
}

// LogRequest writes one line for rec. It never panics and never fails the
// request: formatting problems degrade to a minimal line and write errors are
// only counted and reported to the diagnostic log.
func (l *Logger) LogRequest(rec Record) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncAccessLogError()
			logger.Source("accesslog").WithField("panic", fmt.Sprint(r)).Error("Failed to format access log line")
			l.out.Info(fallbackLine(rec))
		}
	}()
	l.out.Info(l.format(rec))
}

func fallbackLine(rec Record) string {
	return fmt.Sprintf(`%s - - [-] "- - -" %d - "-" "-"`, orDash(sanitizeOrEmpty(rec.ClientIP)), rec.Status)
}

func sanitizeOrEmpty(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] == 0x7f || s[i] == '"' {
			return ""
		}
	}
	return s
}

// countingWriter reports write failures that logrus would otherwise only
// print to stderr.
type countingWriter struct {
	w io.Writer
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		metrics.IncAccessLogError()
		logger.Source("accesslog").WithError(err).Error("Failed to write access log line")
	}
	return n, err
}
