package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	EntriesDiscovered Type = iota + 1
	EntriesToDeleteDiscovered
	DirectoryTraversing
	DirectoryTraversed
	DirectoryCreated
	EntryDeleting
	EntryDeleted
	EntrySkipped
	FileCopying
	FileCopyProgress
	FileCopied
	FileSkipped
	Error
	Pulse

	numTypes = iota + 1
)

var typeNames = [...]string{
	EntriesDiscovered:         "EntriesDiscovered",
	EntriesToDeleteDiscovered: "EntriesToDeleteDiscovered",
	DirectoryTraversing:       "DirectoryTraversing",
	DirectoryTraversed:        "DirectoryTraversed",
	DirectoryCreated:          "DirectoryCreated",
	EntryDeleting:             "EntryDeleting",
	EntryDeleted:              "EntryDeleted",
	EntrySkipped:              "EntrySkipped",
	FileCopying:               "FileCopying",
	FileCopyProgress:          "FileCopyProgress",
	FileCopied:                "FileCopied",
	FileSkipped:               "FileSkipped",
	Error:                     "Error",
	Pulse:                     "Pulse",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event is a single lifecycle notification from the engine.
type Event struct {
	Timestamp time.Time
	Error     error
	Path      string // entry the event is about
	Dest      string // destination path, for copy events
	Type      Type
	Size      int64 // file size, or bytes so far for FileCopyProgress
	Count     int   // batch size for EntriesDiscovered/EntriesToDeleteDiscovered
}
