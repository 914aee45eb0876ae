package accesslog

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/gatekeeper/internal/logger"
)

// NewRotatingWriter returns a size-rotated file writer for the access log.
func NewRotatingWriter(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 7,
		MaxAge:     28, // days
		Compress:   true,
		LocalTime:  true,
	}
}

// Rotator is implemented by *lumberjack.Logger.
type Rotator interface {
	Rotate() error
}

// Rotation forces a rotation on a cron schedule on top of size based rotation.
type Rotation struct {
	Cron *cron.Cron
}

// ScheduleRotation starts a cron job calling r.Rotate on spec (e.g. "@daily").
func ScheduleRotation(spec string, r Rotator) (*Rotation, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := r.Rotate(); err != nil {
			logger.Source("accesslog").WithError(err).Error("Scheduled access log rotation failed")
			return
		}
		logger.Source("accesslog").Debug("Access log rotated")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid rotation schedule %q: %w", spec, err)
	}
	c.Start()
	return &Rotation{Cron: c}, nil
}

// Stop halts the schedule and waits for a running rotation to finish.
func (r *Rotation) Stop() {
	<-r.Cron.Stop().Done()
}
