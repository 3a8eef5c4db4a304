package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// WalkContext carries the per-frame state of the mirror walk. Each
// recursion frame owns its own copy with RemoteDir/LocalDir updated.
type WalkContext struct {
	RemoteDir    string
	LocalDir     string
	DeleteRemote bool
	Flatten      bool
}

// Outcome classifies a finished run for callers that need more than a
// boolean: everything transferred, some items failed, or the run never
// got past setup.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFatal
)

// Report aggregates the walk. A subtree fails when any file below it
// fails, but one failure never stops sibling processing.
type Report struct {
	Downloaded int
	Deleted    int
	Failed     int

	errs *multierror.Error
}

func (r *Report) record(err error) {
	r.Failed++
	r.errs = multierror.Append(r.errs, err)
}

// Err returns the collected per-item errors, nil when none occurred.
func (r *Report) Err() error {
	return r.errs.ErrorOrNil()
}

func (r *Report) Outcome() Outcome {
	if r.Failed == 0 {
		return OutcomeSuccess
	}
	return OutcomePartial
}

// Walker recursively mirrors a remote subtree into local storage over a
// single Conn. It is not safe for concurrent use: the connection's
// directory cursor is shared across the whole recursion.
type Walker struct {
	conn   Conn
	events *EventLog
}

func NewWalker(conn Conn, events *EventLog) *Walker {
	return &Walker{conn: conn, events: events}
}

// Walk mirrors the subtree rooted at ctx.RemoteDir into ctx.LocalDir.
// The returned error is non-nil only when the root directory itself
// cannot be entered; every failure below that is aggregated into the
// Report and sibling processing continues.
func (w *Walker) Walk(ctx WalkContext) (*Report, error) {
	rep := &Report{}
	if err := w.conn.ChangeDir(ctx.RemoteDir); err != nil {
		return rep, fmt.Errorf("change directory to %s: %w", ctx.RemoteDir, err)
	}
	w.walkFrame(ctx, rep)
	return rep, nil
}

// walk enters one subdirectory frame. When ChangeDir fails the cursor
// never moved, so the branch is failed without a parent restore.
func (w *Walker) walk(ctx WalkContext, rep *Report) bool {
	if err := w.conn.ChangeDir(ctx.RemoteDir); err != nil {
		w.fail(rep, ctx.RemoteDir, err)
		return false
	}
	return w.walkFrame(ctx, rep)
}

// walkFrame iterates one directory whose ChangeDir already succeeded.
// The deferred ChangeDirToParent is the frame's Leaving phase: the
// cursor must be back at the parent on every return path, or sibling
// iteration above this frame breaks.
func (w *Walker) walkFrame(ctx WalkContext, rep *Report) (ok bool) {
	ok = true
	defer func() {
		if err := w.conn.ChangeDirToParent(); err != nil {
			w.fail(rep, ctx.RemoteDir, err)
			ok = false
		}
	}()

	log.Infof("Processing directory: %s", ctx.RemoteDir)

	if !ctx.Flatten {
		if err := ensureLocalDir(ctx.LocalDir); err != nil {
			w.fail(rep, ctx.RemoteDir, err)
			return false
		}
	}

	entries, err := w.conn.List()
	if err != nil {
		w.fail(rep, ctx.RemoteDir, err)
		return false
	}

	for _, e := range entries {
		remotePath := joinRemote(ctx.RemoteDir, e.Name)
		if e.Dir {
			// Flatten keeps the flatten root as the local target at
			// every depth.
			sub := ctx
			sub.RemoteDir = remotePath
			if !sub.Flatten {
				sub.LocalDir = filepath.Join(ctx.LocalDir, e.Name)
			}
			if !w.walk(sub, rep) {
				ok = false
			}
			continue
		}
		if !w.transfer(ctx, e.Name, remotePath, rep) {
			ok = false
		}
	}
	return ok
}

// transfer downloads one file, verifies the local artifact and, on
// verified success only, deletes the remote copy when requested.
func (w *Walker) transfer(ctx WalkContext, name, remotePath string, rep *Report) bool {
	localPath := filepath.Join(ctx.LocalDir, name)
	if ctx.Flatten {
		localPath = filepath.Join(ctx.LocalDir, flattenName(remotePath))
	}

	if err := w.download(name, localPath); err != nil {
		w.fail(rep, remotePath, err)
		return false
	}

	if !verifyDownload(localPath) {
		log.Errorf("Download failed: %s", remotePath)
		w.events.Event("Download failed: %s", remotePath)
		rep.record(fmt.Errorf("%s: empty or missing after download", remotePath))
		return false
	}

	if ctx.DeleteRemote {
		if err := w.conn.Delete(name); err != nil {
			w.fail(rep, remotePath, err)
			return false
		}
		rep.Downloaded++
		rep.Deleted++
		log.Infof("Downloaded and deleted: %s", remotePath)
		w.events.Event("Downloaded and deleted: %s", remotePath)
		return true
	}

	rep.Downloaded++
	log.Infof("Downloaded: %s", remotePath)
	w.events.Event("Downloaded: %s", remotePath)
	return true
}

// download writes the remote file to localPath, overwriting existing
// content. The local handle is closed before the caller verifies.
func (w *Walker) download(name, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return err
	}

	r, err := w.conn.Retr(name)
	if err != nil {
		out.Close()
		return err
	}

	_, copyErr := io.Copy(out, r)
	r.Close()
	if err := out.Close(); err != nil {
		return err
	}
	return copyErr
}

func (w *Walker) fail(rep *Report, remotePath string, err error) {
	log.Errorf("Error processing %s: %v", remotePath, err)
	w.events.Event("Error processing %s: %v", remotePath, err)
	rep.record(fmt.Errorf("%s: %w", remotePath, err))
}
