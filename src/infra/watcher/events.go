package watcher

import (
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileEventType represents the type of file system event
type FileEventType string

const (
	FileCreated  FileEventType = "created"
	FileRemoved  FileEventType = "removed"
	FileModified FileEventType = "modified"
)

// FileEvent represents a debounced file system event
type FileEvent struct {
	Path      string
	EventType FileEventType
	Timestamp time.Time
}

func eventType(op fsnotify.Op) FileEventType {
	switch {
	case op.Has(fsnotify.Create):
		return FileCreated
	case op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename):
		return FileRemoved
	default:
		return FileModified
	}
}
