package udfs

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHash = "QmT78zSuBmuS4z925WZfrqQ1qHaJ56DQaTfyMUF7F8ff5o"

// gateway fakes the API endpoints the client uses. The shell asks for the
// node version before its first add.
func gateway(t *testing.T, content string) (*httptest.Server, *[]byte) {
	t.Helper()
	var uploaded []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v0/version":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"Version":"0.20.0","Commit":"b8c4725"}`)
		case "/api/v0/add":
			mr, err := r.MultipartReader()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			part, err := mr.NextPart()
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			uploaded, _ = io.ReadAll(part)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"Name":"`+testHash+`","Hash":"`+testHash+`","Size":"12"}`)
		case "/api/v0/cat":
			if r.URL.Query().Get("arg") != testHash {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"Message":"not found","Code":0,"Type":"error"}`)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			_, _ = io.WriteString(w, content)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &uploaded
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "114.67.37.2:20418", Endpoint("114.67.37.2", 20418))
}

func TestUpload(t *testing.T) {
	srv, uploaded := gateway(t, "")
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello ulord\n"), 0o644))

	f, err := New(srv.URL).Upload(path)
	require.NoError(t, err)
	assert.Equal(t, testHash, f.Hash)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, int64(12), f.Size)
	assert.Equal(t, "hello ulord\n", string(*uploaded))
}

func TestUploadMissingFile(t *testing.T) {
	_, err := New("127.0.0.1:1").Upload(filepath.Join(t.TempDir(), "none"))
	assert.True(t, os.IsNotExist(err))
}

func TestUploadDirectory(t *testing.T) {
	_, err := New("127.0.0.1:1").Upload(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func TestDownload(t *testing.T) {
	srv, _ := gateway(t, "file body")
	out := filepath.Join(t.TempDir(), "sub", "got.txt")

	path, err := New(srv.URL).Download(testHash, out)
	require.NoError(t, err)
	assert.Equal(t, out, path)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "file body", string(data))
}

func TestDownloadUnknownHash(t *testing.T) {
	srv, _ := gateway(t, "file body")
	out := filepath.Join(t.TempDir(), "got.txt")

	_, err := New(srv.URL).Download("QmNope", out)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not found"))
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloadEmptyHash(t *testing.T) {
	_, err := New("127.0.0.1:1").Download("", "")
	assert.ErrorIs(t, err, ErrEmptyHash)
}

func TestConfigure(t *testing.T) {
	c := New("a:1")
	c.Configure("b:2")
	assert.Equal(t, "b:2", c.Endpoint())
}
