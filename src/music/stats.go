package music

import (
	"fmt"
	"time"
)

// CycleStats holds the counters of a single sync cycle. A fresh value is
// created at cycle start and handed down the call chain by pointer.
type CycleStats struct {
	PlaylistsProcessed int `json:"playlistsProcessed"`
	PlaylistsFailed    int `json:"playlistsFailed"`
	DownloadsAttempted int `json:"downloadsAttempted"`
	DownloadsSucceeded int `json:"downloadsSucceeded"`
	DownloadsFailed    int `json:"downloadsFailed"`
	DownloadsSkipped   int `json:"downloadsSkipped"`
	DeletionsSucceeded int `json:"deletionsSucceeded"`
	DeletionsFailed    int `json:"deletionsFailed"`
}

// Summary renders the per-cycle report line.
func (s CycleStats) Summary() string {
	return fmt.Sprintf("playlists %d (failed %d) | downloads attempted %d, succeeded %d, failed %d, skipped %d | deletions succeeded %d, failed %d",
		s.PlaylistsProcessed, s.PlaylistsFailed,
		s.DownloadsAttempted, s.DownloadsSucceeded, s.DownloadsFailed, s.DownloadsSkipped,
		s.DeletionsSucceeded, s.DeletionsFailed)
}

// CycleReport is the outcome of one sync cycle.
type CycleReport struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Stats      CycleStats `json:"stats"`
	Error      string     `json:"error,omitempty"`
}

// Duration returns how long the cycle took.
func (r CycleReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports whether the cycle aborted with an error.
func (r CycleReport) Failed() bool {
	return r.Error != ""
}
