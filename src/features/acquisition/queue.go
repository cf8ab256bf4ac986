package acquisition

import (
	"context"
	"log/slog"
	"time"

	"github.com/contre95/plexify/src/music"
)

// Acquirer is the part of Service used by the Queue.
type Acquirer interface {
	Existing(ctx context.Context, track music.RemoteTrack, destDir string) (Outcome, bool)
	Fetch(ctx context.Context, track music.RemoteTrack, destDir string) Outcome
}

// Queue runs acquisitions one at a time and waits between two attempts that
// reached the network. Tracks already on disk never wait.
type Queue struct {
	acquirer Acquirer
	delay    func() time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	pending  bool
}

// NewQueue creates a queue pacing network attempts. delay is asked before
// every wait, so a reloaded setting applies to the next track.
func NewQueue(acquirer Acquirer, delay func() time.Duration) *Queue {
	if delay == nil {
		delay = func() time.Duration { return 0 }
	}
	return &Queue{acquirer: acquirer, delay: delay, sleep: sleepContext}
}

// Acquire checks the disk and, when needed, fetches the track after the pacing delay.
func (q *Queue) Acquire(ctx context.Context, track music.RemoteTrack, destDir string) Outcome {
	if out, ok := q.acquirer.Existing(ctx, track, destDir); ok {
		slog.Debug("Track already on disk", "track", track.Title, "path", out.Path)
		return out
	}
	if d := q.delay(); q.pending && d > 0 {
		if err := q.sleep(ctx, d); err != nil {
			return failed(err.Error(), false)
		}
	}
	out := q.acquirer.Fetch(ctx, track, destDir)
	q.pending = out.Networked
	return out
}

// Reset forgets the previous attempt, typically at cycle start.
func (q *Queue) Reset() {
	q.pending = false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
