package ui

import (
	"context"
	"log/slog"

	"github.com/bamsammich/parfs/internal/event"
)

// LoggedEvents are the event types EventLogger records. Progress and pulse
// events are too frequent to log.
var LoggedEvents = []event.Type{
	event.DirectoryCreated,
	event.EntryDeleted,
	event.EntrySkipped,
	event.FileCopied,
	event.FileSkipped,
	event.Error,
}

// EventLogger returns a bus handler that writes each event as a structured
// "parfs.event" debug record.
func EventLogger(logger *slog.Logger) event.Handler {
	return func(ev event.Event) {
		attrs := []slog.Attr{
			slog.String("type", ev.Type.String()),
			slog.String("path", ev.Path),
		}
		if ev.Dest != "" {
			attrs = append(attrs, slog.String("dest", ev.Dest))
		}
		if ev.Size != 0 {
			attrs = append(attrs, slog.Int64("size", ev.Size))
		}
		if ev.Error != nil {
			attrs = append(attrs, slog.String("error", ev.Error.Error()))
		}
		logger.LogAttrs(context.Background(), slog.LevelDebug, "parfs.event", attrs...)
	}
}
