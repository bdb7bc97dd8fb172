package downloader

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"atomkit/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const content = "0123456789"

func rangedServer(gets *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
		}
		http.ServeContent(w, r, "file.txt", time.Time{}, strings.NewReader(content))
	}))
}

func directServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte(content))
	}))
}

func TestHead(t *testing.T) {
	var gets atomic.Int32
	ranged := rangedServer(&gets)
	defer ranged.Close()
	direct := directServer()
	defer direct.Close()

	d, err := New(Options{})
	require.NoError(t, err)

	head, err := d.Head(context.Background(), ranged.URL)
	require.NoError(t, err)
	require.Equal(t, Head{Size: 10, AcceptsRange: true}, head)

	head, err = d.Head(context.Background(), direct.URL)
	require.NoError(t, err)
	require.Equal(t, Head{Size: 10, AcceptsRange: false}, head)
}

func TestDownloadRanges(t *testing.T) {
	var gets atomic.Int32
	srv := rangedServer(&gets)
	defer srv.Close()

	rec := &telemetry.Recorder{}
	d, err := New(Options{BlockSize: 4, Telemetry: rec})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "nested", "file.txt")
	require.NoError(t, d.Download(context.Background(), srv.URL, file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
	require.EqualValues(t, 3, gets.Load())
	require.Len(t, rec.Reports("count"), 3)

	// a second download replaces the file instead of appending to it
	require.NoError(t, d.Download(context.Background(), srv.URL, file))
	data, err = os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestDownloadDirect(t *testing.T) {
	srv := directServer()
	defer srv.Close()

	d, err := New(Options{})
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, d.Download(context.Background(), srv.URL, file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func TestDownloadSizeMismatch(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Accept-Ranges", "bytes")
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", "100")
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		if gets.Add(1) == 1 {
			w.Write([]byte("abc"))
		}
	}))
	defer srv.Close()

	d, err := New(Options{Telemetry: &telemetry.Recorder{}})
	require.NoError(t, err)

	err = d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "file"))
	require.ErrorIs(t, err, ErrSizeMismatch)
}

func TestDownloadNoSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
	}))
	defer srv.Close()

	d, err := New(Options{Telemetry: &telemetry.Recorder{}})
	require.NoError(t, err)

	err = d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "file"))
	require.ErrorIs(t, err, ErrNoSize)
}

func TestDownloadBytes(t *testing.T) {
	srv := directServer()
	defer srv.Close()

	d, err := New(Options{})
	require.NoError(t, err)

	data, err := d.DownloadBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, content, string(data))
}

func zipArchive(t *testing.T, files map[string]string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestUnzip(t *testing.T) {
	dir := t.TempDir()
	paths, err := Unzip(zipArchive(t, map[string]string{
		"chrome-linux/chrome": "binary",
	}), dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(filepath.Join(dir, "chrome-linux", "chrome"))
	require.NoError(t, err)
	require.Equal(t, "binary", string(data))

	_, err = Unzip(zipArchive(t, map[string]string{"../evil": "x"}), dir)
	require.Error(t, err)

	_, err = Unzip([]byte("not a zip"), dir)
	require.Error(t, err)
}
