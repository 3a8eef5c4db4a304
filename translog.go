package main

import (
	"fmt"
	"io"
	"time"
)

const eventTimeFormat = "2006-01-02 15:04:05"

// EventLog is the append-only transfer log: one timestamped line per
// event, written to a file sink or to io.Discard with --no-log.
type EventLog struct {
	w io.Writer
}

func NewEventLog(w io.Writer) *EventLog {
	return &EventLog{w: w}
}

func (l *EventLog) Event(format string, args ...any) {
	fmt.Fprintf(l.w, "%s - %s\n", time.Now().Format(eventTimeFormat), fmt.Sprintf(format, args...))
}

// Start writes the session-start banner.
func (l *EventLog) Start(mode string) {
	fmt.Fprintln(l.w)
	l.Event("Starting sync (%s)", mode)
}

// End writes the session-end banner, noting overall outcome.
func (l *EventLog) End(mode string, ok bool) {
	if ok {
		l.Event("Sync completed successfully (%s)", mode)
		return
	}
	l.Event("Sync completed with errors (%s)", mode)
}
