package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root4loot/fotogopher"
	"github.com/root4loot/fotogopher/internal/cache"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}

type call struct {
	url           string
	width, height int
}

type fakeSnapshotter struct {
	mu    sync.Mutex
	calls []call
	data  []byte
	err   error
}

func (f *fakeSnapshotter) Snapshot(ctx context.Context, url string, width, height int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{url, width, height})
	return f.data, f.err
}

func (f *fakeSnapshotter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func get(t *testing.T, deps Deps, target string) *http.Response {
	t.Helper()
	resp, err := New(deps).Test(httptest.NewRequest(http.MethodGet, target, nil))
	require.NoError(t, err)
	return resp
}

func TestHelpPage(t *testing.T) {
	resp := get(t, Deps{Snapshotter: &fakeSnapshotter{}}, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/snapshot?width=640&height=480")
}

func TestSnapshotValidation(t *testing.T) {
	s := &fakeSnapshotter{data: jpegBytes}
	tests := []struct {
		name   string
		target string
		code   int
	}{
		{"missing url", "/snapshot?width=10", http.StatusBadRequest},
		{"both dimensions zero", "/snapshot?url=example.com", http.StatusBadRequest},
		{"non numeric dimensions", "/snapshot?url=example.com&width=abc&height=x", http.StatusBadRequest},
		{"negative dimensions", "/snapshot?url=example.com&width=-5", http.StatusBadRequest},
		{"width too large", "/snapshot?url=example.com&width=60000&height=60000", http.StatusBadRequest},
		{"height too large", "/snapshot?url=example.com&width=100&height=4097", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, Deps{Snapshotter: s}, tc.target)
			assert.Equal(t, tc.code, resp.StatusCode)

			var body struct {
				Error struct {
					Code    int    `json:"code"`
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}
	assert.Zero(t, s.callCount())
}

func TestSnapshotSuccess(t *testing.T) {
	s := &fakeSnapshotter{data: jpegBytes}

	resp := get(t, Deps{Snapshotter: s}, "/snapshot?url=example.com&width=640")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, jpegBytes, body)

	require.Equal(t, 1, s.callCount())
	assert.Contains(t, s.calls[0].url, "http://example.com")
	assert.Equal(t, 640, s.calls[0].width)
	assert.Equal(t, 0, s.calls[0].height)
}

func TestSnapshotMaxDimension(t *testing.T) {
	s := &fakeSnapshotter{data: jpegBytes}
	deps := Deps{Snapshotter: s, MaxDimension: 800}

	resp := get(t, deps, "/snapshot?url=example.com&width=801")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, s.callCount())

	resp = get(t, deps, "/snapshot?url=example.com&width=800&height=600")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.callCount())
}

func TestSnapshotKeepsScheme(t *testing.T) {
	s := &fakeSnapshotter{data: jpegBytes}
	resp := get(t, Deps{Snapshotter: s}, "/snapshot?url=https://example.com/page&height=100")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://example.com/page", s.calls[0].url)
}

func TestSnapshotErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"busy", fotogopher.ErrBusy, http.StatusServiceUnavailable},
		{"timeout", fotogopher.ErrTimeout, http.StatusGatewayTimeout},
		{"navigation", &fotogopher.NavigationError{URL: "http://x/", Err: errors.New("refused")}, http.StatusBadGateway},
		{"other", errors.New("jpeg decoding failed"), http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, Deps{Snapshotter: &fakeSnapshotter{err: tc.err}}, "/snapshot?url=x.example&width=10")
			assert.Equal(t, tc.code, resp.StatusCode)
		})
	}
}

func TestSnapshotCache(t *testing.T) {
	mrs, err := miniredis.Run()
	require.NoError(t, err)
	defer mrs.Close()

	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mrs.Addr()}), time.Minute)
	s := &fakeSnapshotter{data: jpegBytes}
	deps := Deps{Snapshotter: s, Cache: c}

	for i := 0; i < 2; i++ {
		resp := get(t, deps, "/snapshot?url=https://example.com/&width=320&height=200")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, jpegBytes, body)
	}
	assert.Equal(t, 1, s.callCount(), "second request must be served from cache")

	resp := get(t, deps, "/snapshot?url=https://example.com/&width=321&height=200")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, s.callCount())
}

func TestFailuresAreNotCached(t *testing.T) {
	mrs, err := miniredis.Run()
	require.NoError(t, err)
	defer mrs.Close()

	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mrs.Addr()}), time.Minute)
	get(t, Deps{Snapshotter: &fakeSnapshotter{err: errors.New("boom")}, Cache: c}, "/snapshot?url=example.com&width=10")
	assert.Empty(t, mrs.Keys())
}

func TestHealthAndNotFound(t *testing.T) {
	deps := Deps{Snapshotter: &fakeSnapshotter{}}

	assert.Equal(t, http.StatusOK, get(t, deps, "/livez").StatusCode)

	resp := get(t, deps, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
