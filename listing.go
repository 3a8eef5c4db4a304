package main

import (
	"strings"
)

// Entry is one remote directory entry
type Entry struct {
	Name string
	Dir  bool
}

// Decoder turns one raw directory-listing record into an Entry.
// Implementations cover one listing dialect; connectors that receive
// structured entries from their client library skip decoding entirely.
type Decoder interface {
	// Decode returns the entry and true, or false when the record
	// carries no usable entry (malformed, self/parent reference).
	Decode(record string) (Entry, bool)
}

// UnixDecoder parses Unix-style long listings ("ls -l" output, the
// format classic FTP servers produce for LIST). Windows-style listings
// are not handled.
type UnixDecoder struct{}

func (UnixDecoder) Decode(record string) (Entry, bool) {
	tokens := strings.Fields(record)
	if len(tokens) < 9 {
		return Entry{}, false
	}

	// The name starts at token 8; rejoining covers names that contain
	// spaces, as long as no earlier field does.
	name := strings.Join(tokens[8:], " ")
	if name == "." || name == ".." {
		return Entry{}, false
	}

	return Entry{Name: name, Dir: record[0] == 'd'}, true
}
