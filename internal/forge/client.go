// Package forge talks to the release hosting API: draft releases, asset
// uploads, and publication. The API is GitHub-shaped, so the client works
// against github.com and self-hosted forges that mirror its routes.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is a minimal forge API client. Methods retry transport failures
// and 5xx responses with linear backoff.
type Client struct {
	base    string
	token   string
	httpc   *http.Client
	logger  zerolog.Logger
	retries int
	backoff time.Duration
}

// New returns a client for the API at base. The token may be empty for
// anonymous reads.
func New(base, token string, logger zerolog.Logger) *Client {
	return &Client{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		httpc:   &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
		retries: 3,
		backoff: 500 * time.Millisecond,
	}
}

// Release is a forge release object.
type Release struct {
	ID              int64   `json:"id"`
	TagName         string  `json:"tag_name"`
	TargetCommitish string  `json:"target_commitish"`
	Name            string  `json:"name"`
	Body            string  `json:"body"`
	Draft           bool    `json:"draft"`
	HTMLURL         string  `json:"html_url"`
	Assets          []Asset `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// APIError is a non-2xx response from the forge.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("forge: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("forge: %d %s", e.StatusCode, e.Message)
}

// CreateReleaseRequest shapes the draft release.
type CreateReleaseRequest struct {
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish"`
	Name            string `json:"name"`
	Body            string `json:"body,omitempty"`
	Draft           bool   `json:"draft"`
}

// CreateDraftRelease creates a draft release tagged at the given commit.
func (c *Client) CreateDraftRelease(ctx context.Context, owner, repo string, req CreateReleaseRequest) (*Release, error) {
	req.Draft = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal release: %w", err)
	}
	var rel Release
	err = c.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/repos/%s/%s/releases", c.base, owner, repo),
		jsonBody(body), "application/json", http.StatusCreated, &rel)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func jsonBody(data []byte) func() (io.Reader, int64, error) {
	return func() (io.Reader, int64, error) {
		return bytes.NewReader(data), int64(len(data)), nil
	}
}

// UploadAsset attaches the file at path to a release under the given
// asset name. The file is reopened per retry attempt.
func (c *Client) UploadAsset(ctx context.Context, owner, repo string, releaseID int64, name, path string) (*Asset, error) {
	var asset Asset
	err := c.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
			c.base, owner, repo, releaseID, url.QueryEscape(name)),
		func() (io.Reader, int64, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, 0, fmt.Errorf("open asset: %w", err)
			}
			info, err := f.Stat()
			if err != nil {
				_ = f.Close()
				return nil, 0, fmt.Errorf("stat asset: %w", err)
			}
			return f, info.Size(), nil
		},
		"application/octet-stream", http.StatusCreated, &asset)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// PublishRelease flips a draft release to published.
func (c *Client) PublishRelease(ctx context.Context, owner, repo string, releaseID int64) (*Release, error) {
	body := []byte(`{"draft":false}`)
	var rel Release
	err := c.do(ctx, http.MethodPatch,
		fmt.Sprintf("%s/repos/%s/%s/releases/%d", c.base, owner, repo, releaseID),
		jsonBody(body), "application/json", http.StatusOK, &rel)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

// ReleaseByTag fetches a published release by tag. It returns (nil, nil)
// when the tag has no release.
func (c *Client) ReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error) {
	var rel Release
	err := c.do(ctx, http.MethodGet,
		fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.base, owner, repo, url.PathEscape(tag)),
		nil, "", http.StatusOK, &rel)
	if err != nil {
		if isAPIStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

func isAPIStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// do issues one request with retries. makeBody is invoked per attempt so
// request bodies can be replayed; nil means no body.
func (c *Client) do(ctx context.Context, method, rawURL string, makeBody func() (io.Reader, int64, error), contentType string, wantStatus int, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Debug().
				Str("method", method).
				Str("url", rawURL).
				Int("attempt", attempt+1).
				Msg("retrying forge request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}

		retry, err := c.attempt(ctx, method, rawURL, makeBody, contentType, wantStatus, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			return err
		}
	}
	return fmt.Errorf("forge request failed after %d attempts: %w", c.retries+1, lastErr)
}

// attempt runs a single request. The bool result says whether the failure
// is worth retrying.
func (c *Client) attempt(ctx context.Context, method, rawURL string, makeBody func() (io.Reader, int64, error), contentType string, wantStatus int, out any) (bool, error) {
	var body io.Reader
	var size int64
	if makeBody != nil {
		var err error
		body, size, err = makeBody()
		if err != nil {
			return false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		if closer, ok := body.(io.Closer); ok {
			_ = closer.Close()
		}
		return false, fmt.Errorf("build request: %w", err)
	}
	if size > 0 {
		req.ContentLength = size
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "sc3kit")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		return true, fmt.Errorf("forge request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Msg("forge request")

	if resp.StatusCode != wantStatus {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: readAPIMessage(resp.Body)}
		return resp.StatusCode >= 500, apiErr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode response: %w", err)
		}
	}
	return false, nil
}

// readAPIMessage pulls the message field out of an error response body.
func readAPIMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(data))
}
