package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Fetcher downloads model archives from https:// or sftp:// sources. When the
// source publishes a .sha256 sidecar, the download is verified against it.
type Fetcher struct {
	HTTP           *RetryClient
	KeyPath        string // SSH private key for sftp:// sources
	KnownHostsPath string // host keys go unchecked when the file is absent
}

// NewFetcher returns a fetcher with the conventional SSH key locations.
func NewFetcher() *Fetcher {
	home, _ := os.UserHomeDir()
	return &Fetcher{
		HTTP:           NewRetryClient(10 * time.Minute),
		KeyPath:        filepath.Join(home, ".ssh", "id_ed25519"),
		KnownHostsPath: filepath.Join(home, ".ssh", "known_hosts"),
	}
}

// Fetch downloads source into destDir and returns the local file path.
func (f *Fetcher) Fetch(ctx context.Context, source, destDir string) (string, error) {
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse source: %w", err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create dest dir: %w", err)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		return "", fmt.Errorf("source %q has no file name", source)
	}
	dest := filepath.Join(destDir, name)

	switch u.Scheme {
	case "http", "https":
		return dest, f.fetchHTTP(ctx, u, dest)
	case "sftp":
		return dest, f.fetchSFTP(u, dest)
	}
	return "", fmt.Errorf("unsupported source scheme %q", u.Scheme)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u *url.URL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := f.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}
	if err := writeFile(dest, resp.Body); err != nil {
		return err
	}

	// Optional integrity sidecar.
	sidecarReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String()+".sha256", nil)
	if err != nil {
		return nil
	}
	sidecar, err := f.HTTP.Do(sidecarReq)
	if err != nil {
		return nil
	}
	defer sidecar.Body.Close()
	if sidecar.StatusCode != http.StatusOK {
		return nil
	}
	expected, err := io.ReadAll(io.LimitReader(sidecar.Body, 200))
	if err != nil {
		return nil
	}
	return verifyChecksum(dest, string(expected))
}

func (f *Fetcher) fetchSFTP(u *url.URL, dest string) error {
	if u.User == nil || u.User.Username() == "" {
		return fmt.Errorf("sftp source requires a user: sftp://user@host/path")
	}
	key, err := os.ReadFile(f.KeyPath)
	if err != nil {
		return fmt.Errorf("read SSH key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return fmt.Errorf("parse SSH key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cb, err := knownhosts.New(f.KnownHostsPath); err == nil {
		hostKeyCallback = cb
	} else {
		log.Warn().Str("path", f.KnownHostsPath).Msg("known_hosts unavailable, skipping host key verification")
	}

	port := u.Port()
	if port == "" {
		port = "22"
	}
	conn, err := ssh.Dial("tcp", u.Hostname()+":"+port, &ssh.ClientConfig{
		User:            u.User.Username(),
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("ssh dial: %w", err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("create SFTP client: %w", err)
	}
	defer client.Close()

	remote, err := client.Open(u.Path)
	if err != nil {
		return fmt.Errorf("open remote file: %w", err)
	}
	defer remote.Close()
	if err := writeFile(dest, remote); err != nil {
		return err
	}

	sidecar, err := client.Open(u.Path + ".sha256")
	if err != nil {
		return nil // no sidecar published
	}
	defer sidecar.Close()
	expected, err := io.ReadAll(io.LimitReader(sidecar, 200))
	if err != nil {
		return nil
	}
	return verifyChecksum(dest, string(expected))
}

func writeFile(dest string, r io.Reader) error {
	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// Checksum computes the SHA-256 of a file as a hex string.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyChecksum compares a file against sidecar content; the sidecar may be
// "<hex>" or "<hex>  <filename>".
func verifyChecksum(path, sidecar string) error {
	fields := strings.Fields(sidecar)
	if len(fields) == 0 {
		return nil
	}
	expected := strings.ToLower(fields[0])
	actual, err := Checksum(path)
	if err != nil {
		return err
	}
	if actual != expected {
		os.Remove(path)
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}
