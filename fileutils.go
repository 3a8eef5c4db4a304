package main

import (
	"os"
	"strings"
)

// joinRemote joins a remote directory and an entry name with exactly
// one separator, so "/" + "a" stays "/a" and "/x" + "a" becomes "/x/a".
func joinRemote(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}

// flattenName maps a remote path to a single filename by stripping one
// leading separator and encoding the rest of the path into the name:
// /a/b/c.txt -> a_b_c.txt, /c.txt -> c.txt. Two remote names that
// already contain underscores can still collide; accepted limitation.
func flattenName(remotePath string) string {
	return strings.ReplaceAll(strings.TrimPrefix(remotePath, "/"), "/", "_")
}

// ensureLocalDir creates the directory if it doesn't exist
func ensureLocalDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

// verifyDownload reports whether the local artifact exists and has
// nonzero size. A zero-byte result counts as a failed transfer even
// when the transfer itself reported no error, which also means a
// legitimately empty remote file is always reported as failed.
func verifyDownload(localPath string) bool {
	info, err := os.Stat(localPath)
	return err == nil && info.Size() > 0
}
