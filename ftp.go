package main

import (
	"io"
	"time"

	"github.com/jlaffaye/ftp"
)

type FTPConnFactory struct{}

func (f *FTPConnFactory) Accept(scheme string) bool {
	return scheme == "ftp"
}

func (f *FTPConnFactory) Dial(addr, user string, password []byte) (Conn, error) {
	return NewFTPConn(addr, user, password)
}

func (f *FTPConnFactory) Name() string {
	return "ftp"
}

// FTPConn adapts a jlaffaye/ftp connection to the Conn cursor. The
// library already decodes the server's listing dialect, so entries are
// mapped straight from its structured form.
type FTPConn struct {
	client *ftp.ServerConn
}

func NewFTPConn(addr, user string, password []byte) (*FTPConn, error) {
	c, err := ftp.Dial(addr, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, err
	}

	err = c.Login(user, string(password))
	if err != nil {
		c.Quit() // Close connection on login failure
		return nil, err
	}

	return &FTPConn{client: c}, nil
}

func (f *FTPConn) ChangeDir(dir string) error {
	return f.client.ChangeDir(dir)
}

func (f *FTPConn) ChangeDirToParent() error {
	return f.client.ChangeDirToParent()
}

func (f *FTPConn) List() ([]Entry, error) {
	raw, err := f.client.List("")
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		// Links count as files, like in the Unix listing dialect.
		entries = append(entries, Entry{Name: e.Name, Dir: e.Type == ftp.EntryTypeFolder})
	}
	return entries, nil
}

func (f *FTPConn) Retr(name string) (io.ReadCloser, error) {
	return f.client.Retr(name)
}

func (f *FTPConn) Delete(name string) error {
	return f.client.Delete(name)
}

func (f *FTPConn) Quit() error {
	return f.client.Quit()
}
