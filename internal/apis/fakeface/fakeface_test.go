package fakeface

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFace(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/face/json":
			require.Equal(t, "male", r.URL.Query().Get("gender"))
			require.Equal(t, "20", r.URL.Query().Get("minimum_age"))
			require.Equal(t, "30", r.URL.Query().Get("maximum_age"))
			fmt.Fprintf(w, `{"image_url": "%s/faces/male_24_abc123.jpg"}`, server.URL)
		case "/faces/male_24_abc123.jpg":
			fmt.Fprint(w, "jpeg bytes")
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL})
	require.NoError(t, err)

	url, err := client.Face(context.Background(), Male, 20, 30)
	require.NoError(t, err)
	require.Equal(t, server.URL+"/faces/male_24_abc123.jpg", url)

	file := filepath.Join(t.TempDir(), "faces", "face.jpg")
	require.NoError(t, client.Download(context.Background(), url, file))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(data))

	require.Error(t, client.Download(context.Background(), server.URL+"/missing.jpg", file+".missing"))
	require.NoFileExists(t, file+".missing")
}

func TestFaceUnexpectedName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"image_url": "https://cdn.example.com/placeholder.png"}`)
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseURL: server.URL})
	require.NoError(t, err)
	_, err = client.Face(context.Background(), "", 25, 35)
	require.Error(t, err)
}
