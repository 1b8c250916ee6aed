// Package udfs talks to the UDFS file gateway, an IPFS-compatible HTTP API.
package udfs

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
)

const requestTimeout = 2 * time.Minute

// ErrEmptyHash is returned when Download is called without a content hash.
var ErrEmptyHash = errors.New("empty content hash")

// File describes an uploaded file.
type File struct {
	Name string
	Hash string
	Size int64
}

// Client uploads and downloads files through one gateway.
type Client struct {
	endpoint string
	sh       *shell.Shell
}

// Endpoint joins host and port into a gateway address.
func Endpoint(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// New creates a client for endpoint ("host:port" or a full URL).
func New(endpoint string) *Client {
	c := &Client{}
	c.Configure(endpoint)
	return c
}

// Configure points the client at a different gateway.
func (c *Client) Configure(endpoint string) {
	c.endpoint = endpoint
	c.sh = shell.NewShell(endpoint)
	c.sh.SetTimeout(requestTimeout)
}

// Endpoint returns the gateway address in use.
func (c *Client) Endpoint() string { return c.endpoint }

// Upload adds the file at path and returns its content hash.
func (c *Client) Upload(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	hash, err := c.sh.Add(f)
	if err != nil {
		return nil, fmt.Errorf("uploading %s to %s: %w", path, c.endpoint, err)
	}
	return &File{Name: filepath.Base(path), Hash: hash, Size: info.Size()}, nil
}

// Download writes the content for hash to out. An empty out uses the hash
// as file name in the working directory. It returns the written path.
func (c *Client) Download(hash, out string) (string, error) {
	if hash == "" {
		return "", ErrEmptyHash
	}
	if out == "" {
		out = hash
	}

	r, err := c.sh.Cat(hash)
	if err != nil {
		return "", fmt.Errorf("downloading %s from %s: %w", hash, c.endpoint, err)
	}
	defer r.Close()

	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(out)
		return "", fmt.Errorf("downloading %s: %w", hash, err)
	}
	return out, f.Close()
}
