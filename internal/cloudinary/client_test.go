package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "folder": "attendance", "api_key": "key"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=attendance&timestamp=100secret")))
	assert.Equal(t, want, got)
}

func TestUploadBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/demo/image/upload", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", r.FormValue("file"))
		assert.Equal(t, "attendance", r.FormValue("folder"))
		assert.Equal(t, "1700000000", r.FormValue("timestamp"))
		assert.NotEmpty(t, r.FormValue("signature"))
		_, _ = w.Write([]byte(`{"public_id":"attendance/abc","secure_url":"https://res/abc.jpg"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "attendance")
	c.BaseURL = srv.URL
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.UploadBase64(context.Background(), "aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, "https://res/abc.jpg", res.SecureURL)
}

func TestUploadBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(f)
		assert.Equal(t, "face.png", hdr.Filename)
		assert.Equal(t, []byte{1, 2, 3}, body)
		_, _ = w.Write([]byte(`{"secure_url":"https://res/face.png"}`))
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	res, err := c.UploadBytes(context.Background(), []byte{1, 2, 3}, "face.png")
	require.NoError(t, err)
	assert.Equal(t, "https://res/face.png", res.SecureURL)
}

func TestUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.BaseURL = srv.URL
	_, err := c.UploadBase64(context.Background(), "data:image/png;base64,AA==")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid Signature")
}
