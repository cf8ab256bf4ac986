package acquisition

import "github.com/contre95/plexify/src/music"

// Kind classifies the result of an acquisition.
type Kind int

const (
	Fetched Kind = iota
	Skipped
	Failed
)

func (k Kind) String() string {
	switch k {
	case Fetched:
		return "fetched"
	case Skipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Outcome is the result of acquiring one track.
type Outcome struct {
	Kind   Kind
	Path   string // Final file, set for Fetched and Skipped
	Reason string
	// Networked is set when a search or download tier was contacted.
	Networked bool
}

// Record adds the outcome to the cycle counters. Skips are not attempts.
func (o Outcome) Record(stats *music.CycleStats) {
	if stats == nil {
		return
	}
	switch o.Kind {
	case Fetched:
		stats.DownloadsAttempted++
		stats.DownloadsSucceeded++
	case Failed:
		stats.DownloadsAttempted++
		stats.DownloadsFailed++
	case Skipped:
		stats.DownloadsSkipped++
	}
}

func skipped(path, reason string) Outcome {
	return Outcome{Kind: Skipped, Path: path, Reason: reason}
}

func failed(reason string, networked bool) Outcome {
	return Outcome{Kind: Failed, Reason: reason, Networked: networked}
}
