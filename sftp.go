package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConnFactory struct{}

func (f *SFTPConnFactory) Accept(scheme string) bool { return scheme == "sftp" }

func (f *SFTPConnFactory) Dial(addr, user string, password []byte) (Conn, error) {
	return NewSFTPConn(addr, user, password)
}

func (f *SFTPConnFactory) Name() string { return "sftp" }

// knownHosts stores already verified host fingerprints
var (
	knownHosts   = make(map[string]string)
	knownHostsMu sync.Mutex
)

var hostKeyVerificationCallback = func(hostname string, remote net.Addr, key ssh.PublicKey) error {
	fingerprint := ssh.FingerprintSHA256(key)

	knownHostsMu.Lock()
	storedFingerprint, exists := knownHosts[hostname]
	knownHostsMu.Unlock()
	if exists && storedFingerprint == fingerprint {
		return nil
	}

	fmt.Printf("\nThe authenticity of host '%s' can't be established.\n", hostname)
	fmt.Printf("%s key fingerprint is %s\n", key.Type(), fingerprint)
	fmt.Print("Are you sure you want to continue connecting (yes/no)? ")

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response == "yes" || response == "y" {
		knownHostsMu.Lock()
		knownHosts[hostname] = fingerprint
		knownHostsMu.Unlock()
		return nil
	}

	return fmt.Errorf("host key verification rejected by user")
}

// SFTPConn implements the Conn cursor over SSH. The SFTP subsystem is
// stateless, so the current directory is tracked client-side; listings
// come from running ls over an ssh session and decoding the raw records
// with the configured listing dialect.
type SFTPConn struct {
	client *ssh.Client
	sftp   *sftp.Client
	dec    Decoder
	cwd    string
}

func NewSFTPConn(addr, user string, password []byte) (*SFTPConn, error) {
	config := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(string(password)),
		},
		HostKeyCallback: hostKeyVerificationCallback,
	}

	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}

	sc, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	return &SFTPConn{
		client: client,
		sftp:   sc,
		dec:    UnixDecoder{},
		cwd:    "/",
	}, nil
}

func (s *SFTPConn) ChangeDir(dir string) error {
	info, err := s.sftp.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	s.cwd = dir
	return nil
}

func (s *SFTPConn) ChangeDirToParent() error {
	s.cwd = path.Dir(s.cwd)
	return nil
}

func (s *SFTPConn) List() ([]Entry, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	output, err := session.Output(fmt.Sprintf("ls -la %s", s.cwd))
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(string(output), "\n") {
		if e, ok := s.dec.Decode(line); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s *SFTPConn) Retr(name string) (io.ReadCloser, error) {
	return s.sftp.Open(path.Join(s.cwd, name))
}

func (s *SFTPConn) Delete(name string) error {
	return s.sftp.Remove(path.Join(s.cwd, name))
}

func (s *SFTPConn) Quit() error {
	if err := s.sftp.Close(); err != nil {
		s.client.Close()
		return err
	}
	return s.client.Close()
}
