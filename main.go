package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errSyncFailed = errors.New("sync finished with errors")

var opts struct {
	server       string
	user         string
	password     string
	remoteDir    string
	localDir     string
	deleteRemote bool
	flatten      bool
	noLog        bool
	logFile      string
}

var rootCmd = &cobra.Command{
	Use:   "ftpmirror",
	Short: "Recursively mirror a remote directory tree to local storage",
	Long: `ftpmirror downloads a remote directory tree over FTP or SFTP into a
local directory, verifying every file after transfer and optionally
deleting the remote copy once the download is verified.

Server, user, password and the log file path can also come from
FTPMIRROR_* environment variables or a .env file; explicit flags win.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	fl := rootCmd.Flags()
	fl.StringVarP(&opts.server, "server", "s", "", "Server host (ftp://host or sftp://host; a bare host means ftp)")
	fl.StringVarP(&opts.user, "user", "u", "", "Login username")
	fl.StringVarP(&opts.password, "password", "p", "", "Login password (prompted when not given here or in the environment)")
	fl.StringVarP(&opts.remoteDir, "remote-dir", "r", "/", "Remote directory to start from")
	fl.StringVarP(&opts.localDir, "local-dir", "l", "", "Local directory to save files")
	fl.BoolVarP(&opts.deleteRemote, "delete-remote", "d", false, "Delete remote files after successful download (DESTRUCTIVE)")
	fl.BoolVarP(&opts.flatten, "flatten", "f", false, "Write all files into one local directory, encoding the remote path into the name")
	fl.BoolVarP(&opts.noLog, "no-log", "n", false, "Discard the transfer log instead of writing it to a file")
	fl.StringVar(&opts.logFile, "log-file", "", "Transfer log path (default ftpmirror.log)")
}

func configureLogging() {
	formatter := new(log.TextFormatter)
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)
}

// splitServer splits a --server value into scheme and dial address. A
// bare hostname means ftp; default ports are appended when absent.
func splitServer(server string) (scheme, addr string) {
	scheme, addr = "ftp", server
	if i := strings.Index(server, "://"); i >= 0 {
		scheme, addr = server[:i], server[i+3:]
	}
	if !strings.Contains(addr, ":") {
		if scheme == "sftp" {
			addr += ":22"
		} else {
			addr += ":21"
		}
	}
	return scheme, addr
}

func run() error {
	cfg := LoadConfig()
	if opts.server == "" {
		opts.server = cfg.Server
	}
	if opts.user == "" {
		opts.user = cfg.User
	}
	if opts.logFile == "" {
		opts.logFile = cfg.LogFile
	}

	if opts.server == "" {
		return fmt.Errorf("missing required flag --server")
	}
	if opts.user == "" {
		return fmt.Errorf("missing required flag --user")
	}
	if opts.localDir == "" {
		return fmt.Errorf("missing required flag --local-dir")
	}

	var password []byte
	switch {
	case opts.password != "":
		password = []byte(opts.password)
	case cfg.Password != "":
		password = []byte(cfg.Password)
	default:
		password = askPassword()
	}
	defer secureWipe(password)

	if !strings.HasPrefix(opts.remoteDir, "/") {
		opts.remoteDir = "/" + opts.remoteDir
	}

	scheme, addr := splitServer(opts.server)
	factory := getConnFactory(scheme)
	if factory == nil {
		return fmt.Errorf("no connector available for scheme: %s", scheme)
	}

	if err := ensureLocalDir(opts.localDir); err != nil {
		return fmt.Errorf("create local directory: %w", err)
	}

	sink := io.Writer(io.Discard)
	if !opts.noLog {
		f, err := os.OpenFile(opts.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		sink = f
	}
	events := NewEventLog(sink)

	mode := "download only"
	if opts.deleteRemote {
		mode = "download and delete"
	}
	events.Start(mode)

	conn, err := factory.Dial(addr, opts.user, password)
	if err != nil {
		events.Event("Error: %v", err)
		events.End(mode, false)
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Quit()

	events.Event("Connected to %s", addr)
	log.Infof("Connected to %s", addr)

	if opts.deleteRemote {
		log.Warn("Remote files will be DELETED after download!")
	} else {
		log.Info("Safe mode: files will be downloaded but NOT deleted from the remote server")
	}

	walker := NewWalker(conn, events)
	rep, err := walker.Walk(WalkContext{
		RemoteDir:    opts.remoteDir,
		LocalDir:     opts.localDir,
		DeleteRemote: opts.deleteRemote,
		Flatten:      opts.flatten,
	})
	if err != nil {
		events.Event("Error: %v", err)
		events.End(mode, false)
		return err
	}

	ok := rep.Outcome() == OutcomeSuccess
	events.End(mode, ok)
	if !ok {
		log.Errorf("Sync completed with errors (%s): %d downloaded, %d failed", mode, rep.Downloaded, rep.Failed)
		return fmt.Errorf("%w: %d of %d items failed", errSyncFailed, rep.Failed, rep.Failed+rep.Downloaded)
	}

	log.Infof("Sync completed successfully (%s): %d downloaded, %d deleted", mode, rep.Downloaded, rep.Deleted)
	return nil
}

func main() {
	configureLogging()
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errSyncFailed) {
			log.Errorf("Error: %v", err)
		}
		os.Exit(1)
	}
}
