package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeDir struct {
	dirs  map[string]*fakeDir
	files map[string][]byte
}

func newFakeDir() *fakeDir {
	return &fakeDir{dirs: map[string]*fakeDir{}, files: map[string][]byte{}}
}

func (d *fakeDir) mkdir(name string) *fakeDir {
	sub := newFakeDir()
	d.dirs[name] = sub
	return sub
}

func (d *fakeDir) put(name string, data []byte) {
	d.files[name] = data
}

// fakeConn implements Conn over an in-memory tree with a real cursor,
// so cursor bookkeeping bugs show up as lookup failures.
type fakeConn struct {
	root     *fakeDir
	cwd      string
	failCwd  map[string]bool
	failRetr map[string]bool
	deleted  []string
}

func newFakeConn(root *fakeDir) *fakeConn {
	return &fakeConn{
		root:     root,
		cwd:      "/",
		failCwd:  map[string]bool{},
		failRetr: map[string]bool{},
	}
}

func (c *fakeConn) lookup(p string) *fakeDir {
	d := c.root
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			continue
		}
		d = d.dirs[seg]
		if d == nil {
			return nil
		}
	}
	return d
}

func (c *fakeConn) ChangeDir(dir string) error {
	if c.failCwd[dir] {
		return errors.New("550 permission denied")
	}
	if c.lookup(dir) == nil {
		return errors.New("550 no such directory")
	}
	c.cwd = dir
	return nil
}

func (c *fakeConn) ChangeDirToParent() error {
	c.cwd = path.Dir(c.cwd)
	return nil
}

func (c *fakeConn) List() ([]Entry, error) {
	d := c.lookup(c.cwd)
	if d == nil {
		return nil, errors.New("550 no such directory")
	}
	var entries []Entry
	for name := range d.dirs {
		entries = append(entries, Entry{Name: name, Dir: true})
	}
	for name := range d.files {
		entries = append(entries, Entry{Name: name})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (c *fakeConn) Retr(name string) (io.ReadCloser, error) {
	if c.failRetr[joinRemote(c.cwd, name)] {
		return nil, errors.New("426 transfer aborted")
	}
	d := c.lookup(c.cwd)
	data, ok := d.files[name]
	if !ok {
		return nil, errors.New("550 no such file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *fakeConn) Delete(name string) error {
	d := c.lookup(c.cwd)
	if _, ok := d.files[name]; !ok {
		return errors.New("550 no such file")
	}
	delete(d.files, name)
	c.deleted = append(c.deleted, joinRemote(c.cwd, name))
	return nil
}

func (c *fakeConn) Quit() error { return nil }

func buildTree() *fakeDir {
	root := newFakeDir()
	data := root.mkdir("data")
	data.put("a.txt", []byte("alpha"))
	data.put("b.txt", []byte("beta"))
	sub := data.mkdir("reports")
	sub.put("q1.csv", []byte("1,2,3"))
	deep := sub.mkdir("archive")
	deep.put("old.csv", []byte("9,9"))
	return root
}

func runWalk(t *testing.T, conn Conn, ctx WalkContext) (*Report, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	rep, err := NewWalker(conn, NewEventLog(&buf)).Walk(ctx)
	assert.NoError(t, err)
	return rep, &buf
}

func TestWalker_MirrorsTree(t *testing.T) {
	assertion := assert.New(t)
	conn := newFakeConn(buildTree())
	local := t.TempDir()

	rep, _ := runWalk(t, conn, WalkContext{RemoteDir: "/data", LocalDir: local})

	assertion.Equal(OutcomeSuccess, rep.Outcome())
	assertion.Equal(4, rep.Downloaded)
	assertion.Equal(0, rep.Failed)
	assertion.NoError(rep.Err())

	for localPath, want := range map[string]string{
		"a.txt":                   "alpha",
		"b.txt":                   "beta",
		"reports/q1.csv":          "1,2,3",
		"reports/archive/old.csv": "9,9",
	} {
		got, err := os.ReadFile(filepath.Join(local, filepath.FromSlash(localPath)))
		assertion.NoError(err)
		assertion.Equal(want, string(got))
	}
}

func TestWalker_CursorRestoredToParent(t *testing.T) {
	conn := newFakeConn(buildTree())

	runWalk(t, conn, WalkContext{RemoteDir: "/data", LocalDir: t.TempDir()})

	// The cursor must be back at the parent of the walk root; a listing
	// issued right after the walk reflects the parent's contents.
	assert.Equal(t, "/", conn.cwd)
	entries, err := conn.List()
	assert.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "data", Dir: true}}, entries)
}

func TestWalker_FlattenEncodesRemotePath(t *testing.T) {
	assertion := assert.New(t)
	root := newFakeDir()
	root.put("c.txt", []byte("top"))
	a := root.mkdir("a")
	b := a.mkdir("b")
	b.put("c.txt", []byte("deep"))

	local := t.TempDir()
	rep, _ := runWalk(t, newFakeConn(root), WalkContext{RemoteDir: "/", LocalDir: local, Flatten: true})

	assertion.Equal(OutcomeSuccess, rep.Outcome())

	top, err := os.ReadFile(filepath.Join(local, "c.txt"))
	assertion.NoError(err)
	assertion.Equal("top", string(top))

	deep, err := os.ReadFile(filepath.Join(local, "a_b_c.txt"))
	assertion.NoError(err)
	assertion.Equal("deep", string(deep))

	// Flatten never mirrors the directory hierarchy locally.
	_, err = os.Stat(filepath.Join(local, "a"))
	assertion.True(os.IsNotExist(err))
}

func TestWalker_ZeroByteFileAlwaysFails(t *testing.T) {
	assertion := assert.New(t)
	root := newFakeDir()
	data := root.mkdir("data")
	data.put("empty.txt", nil)

	conn := newFakeConn(root)
	rep, events := runWalk(t, conn, WalkContext{RemoteDir: "/data", LocalDir: t.TempDir(), DeleteRemote: true})

	assertion.Equal(OutcomePartial, rep.Outcome())
	assertion.Equal(1, rep.Failed)
	assertion.Equal(0, rep.Downloaded)
	assertion.Contains(events.String(), "Download failed: /data/empty.txt")

	// Deletion is never attempted for a file that fails verification.
	assertion.Empty(conn.deleted)
	_, stillThere := data.files["empty.txt"]
	assertion.True(stillThere)
}

func TestWalker_OneFailureDoesNotStopSiblings(t *testing.T) {
	assertion := assert.New(t)
	root := newFakeDir()
	data := root.mkdir("data")
	for _, name := range []string{"f1", "f2", "f3", "f4", "f5"} {
		data.put(name, []byte("x"))
	}

	conn := newFakeConn(root)
	conn.failRetr["/data/f3"] = true
	local := t.TempDir()

	rep, events := runWalk(t, conn, WalkContext{RemoteDir: "/data", LocalDir: local})

	assertion.Equal(OutcomePartial, rep.Outcome())
	assertion.Equal(4, rep.Downloaded)
	assertion.Equal(1, rep.Failed)
	assertion.Contains(events.String(), "Error processing /data/f3")
	assertion.Error(rep.Err())

	for _, name := range []string{"f1", "f2", "f4", "f5"} {
		_, err := os.Stat(filepath.Join(local, name))
		assertion.NoError(err)
	}
}

func TestWalker_SubdirFailureDoesNotStopSiblings(t *testing.T) {
	assertion := assert.New(t)
	root := newFakeDir()
	data := root.mkdir("data")
	data.mkdir("locked").put("secret", []byte("s"))
	data.mkdir("open").put("public", []byte("p"))

	conn := newFakeConn(root)
	conn.failCwd["/data/locked"] = true
	local := t.TempDir()

	rep, _ := runWalk(t, conn, WalkContext{RemoteDir: "/data", LocalDir: local})

	assertion.Equal(OutcomePartial, rep.Outcome())
	_, err := os.Stat(filepath.Join(local, "open", "public"))
	assertion.NoError(err)

	// The failed ChangeDir never moved the cursor, so the walk must
	// still end at the root's parent.
	assertion.Equal("/", conn.cwd)
}

func TestWalker_DeleteAfterVerifiedDownload(t *testing.T) {
	assertion := assert.New(t)
	conn := newFakeConn(buildTree())

	rep, events := runWalk(t, conn, WalkContext{RemoteDir: "/data", LocalDir: t.TempDir(), DeleteRemote: true})

	assertion.Equal(OutcomeSuccess, rep.Outcome())
	assertion.Equal(4, rep.Downloaded)
	assertion.Equal(4, rep.Deleted)
	assertion.ElementsMatch(
		[]string{"/data/a.txt", "/data/b.txt", "/data/reports/q1.csv", "/data/reports/archive/old.csv"},
		conn.deleted,
	)
	assertion.Contains(events.String(), "Downloaded and deleted: /data/a.txt")
}

func TestWalker_RootChangeDirFailureIsFatal(t *testing.T) {
	conn := newFakeConn(newFakeDir())

	var buf bytes.Buffer
	rep, err := NewWalker(conn, NewEventLog(&buf)).Walk(WalkContext{RemoteDir: "/missing", LocalDir: t.TempDir()})

	assert.Error(t, err)
	assert.Equal(t, 0, rep.Downloaded)
}
