package remote

import (
	"context"
	"time"

	"github.com/okian/xianxia/pkg/logger"
)

// Stats holds the counts of a remote run.
type Stats struct {
	Turns     int
	Battles   int
	Submitted int
	Accepted  int
	Duplicate int
	Conflict  int
	Rejected  int
	Failed    int
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

func (s *Stats) record(sub Submission, err error) {
	s.Submitted++
	if err != nil {
		s.Failed++
		return
	}
	switch sub {
	case Accepted:
		s.Accepted++
	case Duplicate:
		s.Duplicate++
	case Conflict:
		s.Conflict++
	case Rejected:
		s.Rejected++
	}
}

func (s *Stats) finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// Log writes the final statistics to l.
func (s *Stats) Log(ctx context.Context, l logger.Logger) {
	l.Info(ctx, "final statistics",
		logger.Int("turns", s.Turns),
		logger.Int("battles", s.Battles),
		logger.Int("submitted", s.Submitted),
		logger.Int("accepted", s.Accepted),
		logger.Int("duplicate", s.Duplicate),
		logger.Int("conflict", s.Conflict),
		logger.Int("rejected", s.Rejected),
		logger.Int("failed", s.Failed),
		logger.Duration("duration", s.Duration),
	)
}
