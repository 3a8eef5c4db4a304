package main

import (
	"io"
)

// Conn is a stateful remote connection with a current-directory cursor.
// The cursor is shared mutable state for the whole walk: exactly one
// frame may own it at a time, and every successful ChangeDir must be
// paired with a ChangeDirToParent before control returns to the
// enclosing frame.
type Conn interface {
	ChangeDir(dir string) error
	ChangeDirToParent() error

	// List returns the entries of the current directory, already run
	// through the connector's listing dialect. Self/parent entries are
	// filtered out.
	List() ([]Entry, error)

	// Retr opens the named file in the current directory for reading.
	Retr(name string) (io.ReadCloser, error)

	// Delete removes the named file from the current directory.
	Delete(name string) error

	Quit() error
}

// ConnFactory creates connections for a URL scheme
type ConnFactory interface {
	Accept(scheme string) bool
	Dial(addr, user string, password []byte) (Conn, error)
	Name() string
}
