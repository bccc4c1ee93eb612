package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "sekrit", zerolog.Nop())
	c.backoff = time.Millisecond
	return c
}

func TestCreateDraftRelease(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/hazukari/sc3kit/releases" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("auth header = %q", got)
		}
		var req CreateReleaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.TagName != "v1.2.0" || !req.Draft {
			t.Errorf("unexpected request body: %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 77, "tag_name": "v1.2.0", "draft": true, "html_url": "https://forge.test/r/77"}`)
	})

	c := testClient(t, handler)
	rel, err := c.CreateDraftRelease(context.Background(), "hazukari", "sc3kit", CreateReleaseRequest{
		TagName:         "v1.2.0",
		TargetCommitish: "a1b2c3d",
		Name:            "sc3kit v1.2.0",
	})
	if err != nil {
		t.Fatalf("CreateDraftRelease failed: %v", err)
	}
	if rel.ID != 77 || !rel.Draft {
		t.Errorf("unexpected release: %+v", rel)
	}
}

func TestUploadAsset(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sc3kit-v1.2.0.zip")
	payload := []byte("zip bytes here")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/hazukari/sc3kit/releases/77/assets" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("name"); got != "sc3kit-v1.2.0.zip" {
			t.Errorf("name query = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/octet-stream" {
			t.Errorf("content type = %q", got)
		}
		if r.ContentLength != int64(len(payload)) {
			t.Errorf("content length = %d, want %d", r.ContentLength, len(payload))
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != string(payload) {
			t.Errorf("body = %q", body)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 5, "name": "sc3kit-v1.2.0.zip", "size": 14}`)
	})

	c := testClient(t, handler)
	asset, err := c.UploadAsset(context.Background(), "hazukari", "sc3kit", 77, "sc3kit-v1.2.0.zip", path)
	if err != nil {
		t.Fatalf("UploadAsset failed: %v", err)
	}
	if asset.ID != 5 || asset.Name != "sc3kit-v1.2.0.zip" {
		t.Errorf("unexpected asset: %+v", asset)
	}
}

func TestUploadAssetMissingFile(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent for a missing file")
	}))
	_, err := c.UploadAsset(context.Background(), "o", "r", 1, "x.zip", filepath.Join(t.TempDir(), "absent.zip"))
	if err == nil {
		t.Fatal("expected error for missing asset file")
	}
}

func TestPublishRelease(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/repos/hazukari/sc3kit/releases/77" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"draft":false`) {
			t.Errorf("body = %s", body)
		}
		fmt.Fprint(w, `{"id": 77, "tag_name": "v1.2.0", "draft": false}`)
	})

	c := testClient(t, handler)
	rel, err := c.PublishRelease(context.Background(), "hazukari", "sc3kit", 77)
	if err != nil {
		t.Fatalf("PublishRelease failed: %v", err)
	}
	if rel.Draft {
		t.Error("release should be published")
	}
}

func TestReleaseByTag(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/hazukari/sc3kit/releases/tags/v1.2.0":
			fmt.Fprint(w, `{"id": 77, "tag_name": "v1.2.0"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"message": "Not Found"}`)
		}
	})

	c := testClient(t, handler)
	rel, err := c.ReleaseByTag(context.Background(), "hazukari", "sc3kit", "v1.2.0")
	if err != nil {
		t.Fatalf("ReleaseByTag failed: %v", err)
	}
	if rel == nil || rel.ID != 77 {
		t.Fatalf("unexpected release: %+v", rel)
	}

	rel, err = c.ReleaseByTag(context.Background(), "hazukari", "sc3kit", "v9.9.9")
	if err != nil {
		t.Fatalf("ReleaseByTag failed: %v", err)
	}
	if rel != nil {
		t.Fatalf("expected nil for missing tag, got %+v", rel)
	}
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 1}`)
	})

	c := testClient(t, handler)
	rel, err := c.CreateDraftRelease(context.Background(), "o", "r", CreateReleaseRequest{TagName: "v1.0.0"})
	if err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if rel.ID != 1 {
		t.Errorf("unexpected release: %+v", rel)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestClientErrorDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed"}`)
	})

	c := testClient(t, handler)
	_, err := c.CreateDraftRelease(context.Background(), "o", "r", CreateReleaseRequest{TagName: "v1.0.0"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity || apiErr.Message != "Validation Failed" {
		t.Errorf("unexpected api error: %+v", apiErr)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("4xx must not retry, got %d attempts", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := testClient(t, handler)
	_, err := c.PublishRelease(context.Background(), "o", "r", 1)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}
	if !strings.Contains(err.Error(), "after 4 attempts") {
		t.Errorf("error should mention attempts: %v", err)
	}
}

func TestAnonymousRequestsOmitAuth(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("anonymous client must not send Authorization")
		}
		fmt.Fprint(w, `{"id": 1}`)
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := New(srv.URL, "", zerolog.Nop())
	c.backoff = time.Millisecond
	if _, err := c.ReleaseByTag(context.Background(), "o", "r", "v1.0.0"); err != nil {
		t.Fatalf("ReleaseByTag failed: %v", err)
	}
}
