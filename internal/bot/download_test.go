package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadFromTelegramFileID_Success(t *testing.T) {
	var handlerCalled bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/foo.jpeg" {
			t.Errorf("invalid request to test server: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		handlerCalled = true
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("123"))
	}))
	defer ts.Close()

	getFileDirectURL := func(fileID string) (string, error) {
		return fmt.Sprintf("%s/%s.jpeg", ts.URL, fileID), nil
	}

	data, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), getFileDirectURL, "foo")
	require.NoError(t, err)
	assert.Equal(t, []byte("123"), data)
	assert.True(t, handlerCalled)
}

func TestDownloadFromTelegramFileID_URLResolutionError(t *testing.T) {
	getFileDirectURL := func(fileID string) (string, error) {
		return "", errors.New("file not found")
	}

	_, err := NewImageDownloader().DownloadFromTelegramFileID(context.Background(), getFileDirectURL, "x")
	assert.ErrorContains(t, err, "failed to get file URL")
}

func TestImageDownloader_DownloadFromURL(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47}

	tests := []struct {
		name    string
		handler http.HandlerFunc
		maxSize int64
		want    []byte
		wantErr string
	}{
		{
			name: "png",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				w.Write(png)
			},
			want: png,
		},
		{
			name: "octet stream from telegram",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Write(png)
			},
			want: png,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: "status 404",
		},
		{
			name: "html",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html>not an image</html>"))
			},
			wantErr: "invalid content type",
		},
		{
			name: "body over limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				w.Write(make([]byte, 100))
			},
			maxSize: 50,
			wantErr: "too large",
		},
		{
			name: "content length over limit",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/jpeg")
				w.Header().Set("Content-Length", "999999999")
				w.WriteHeader(http.StatusOK)
			},
			maxSize: 1000,
			wantErr: "too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			d := NewImageDownloader()
			if tt.maxSize > 0 {
				d.WithMaxSize(tt.maxSize)
			}
			data, err := d.DownloadFromURL(context.Background(), ts.URL)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, data)
		})
	}
}

func TestImageDownloader_DownloadFromURL_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should have been canceled")
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImageDownloader().DownloadFromURL(ctx, ts.URL)
	assert.Error(t, err)
}
