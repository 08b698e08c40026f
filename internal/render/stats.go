package render

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/loov/hrtime"
)

// Stats counts renderer activity since startup.
type Stats struct {
	Frames        uint64
	Recreations   uint64
	StaleRetries  uint64
	DroppedFrames uint64
}

// frameTimer accumulates frame times between periodic reports.
type frameTimer struct {
	interval   time.Duration
	lastReport time.Duration
	frames     int
	total      time.Duration
	worst      time.Duration
}

func newFrameTimer(interval time.Duration) *frameTimer {
	return &frameTimer{interval: interval, lastReport: hrtime.Now()}
}

func (t *frameTimer) record(frame time.Duration) {
	t.frames++
	t.total += frame
	if frame > t.worst {
		t.worst = frame
	}
}

// report logs at debug level once per interval.
func (t *frameTimer) report(logger *log.Logger, stats Stats) {
	if t.interval <= 0 || t.frames == 0 || hrtime.Since(t.lastReport) < t.interval {
		return
	}
	logger.Debug("frame stats",
		"frames", stats.Frames,
		"avg", t.total/time.Duration(t.frames),
		"worst", t.worst,
		"recreations", stats.Recreations,
		"stale_retries", stats.StaleRetries,
		"dropped", stats.DroppedFrames,
	)
	t.lastReport = hrtime.Now()
	t.frames = 0
	t.total = 0
	t.worst = 0
}
