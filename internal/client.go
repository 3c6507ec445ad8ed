package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Endpoint paths of the smile-detection service
const (
	PathHome        = "/"
	PathStartCamera = "/start-camera"
	PathStopCamera  = "/stop-camera"
	PathDetectSmile = "/detect-smile"
	PathGetFrame    = "/get-frame"
	PathGetSmiles   = "/get-smiles"
	PathGetImage    = "/get-image/"
)

// maxImageBytes caps FetchImage reads
const maxImageBytes = 32 << 20

// Client talks to the remote smile-detection service
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient creates a client for baseURL. Every request is bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, &ConfigError{Path: "base_url", Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &ConfigError{Path: "base_url", Err: fmt.Errorf("not an absolute URL: %q", baseURL)}
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// BaseURL returns the service root without a trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

// FrameURL returns the live frame locator qualified with a cache-busting token
func (c *Client) FrameURL(token string) string {
	return c.endpoint(PathGetFrame) + "?t=" + url.QueryEscape(token)
}

// SnapshotURL returns the locator of a saved snapshot image
func (c *Client) SnapshotURL(filename string) string {
	return c.endpoint(PathGetImage) + url.PathEscape(filename)
}

// StartCamera asks the service to open the camera. Only a 2xx reply counts as
// success.
func (c *Client) StartCamera(ctx context.Context) error {
	resp, err := c.do(ctx, "start-camera", http.MethodPost, c.endpoint(PathStartCamera))
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// StopCamera asks the service to release the camera
func (c *Client) StopCamera(ctx context.Context) error {
	resp, err := c.do(ctx, "stop-camera", http.MethodPost, c.endpoint(PathStopCamera))
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

// DetectSmile fetches the detection status for the latest frame
func (c *Client) DetectSmile(ctx context.Context) (DetectionResult, error) {
	var result DetectionResult
	err := c.getJSON(ctx, "detect-smile", c.endpoint(PathDetectSmile), &result)
	return result, err
}

// ListSnapshots fetches every saved snapshot in the order the service returns
// them.
func (c *Client) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	var records []SnapshotRecord
	if err := c.getJSON(ctx, "get-smiles", c.endpoint(PathGetSmiles), &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []SnapshotRecord{}
	}
	return records, nil
}

// FetchImage downloads the raw bytes behind a frame or snapshot locator
func (c *Client) FetchImage(ctx context.Context, locator string) ([]byte, string, error) {
	resp, err := c.do(ctx, "get-image", http.MethodGet, locator)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", &RemoteError{Op: "get-image", URL: locator, Err: err}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Ping checks that the service answers on its root path
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "home", http.MethodGet, c.endpoint(PathHome))
	if err != nil {
		return err
	}
	drain(resp)
	return nil
}

func (c *Client) getJSON(ctx context.Context, op, target string, v interface{}) error {
	resp, err := c.do(ctx, op, http.MethodGet, target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &ParseError{Source: op, Key: target, Err: err}
	}
	return nil
}

// do issues the request and turns transport failures and non-2xx replies into
// *RemoteError. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, op, method, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &RemoteError{Op: op, URL: target, Err: err}
	}

	LogDebug("%s %s", method, target)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RemoteError{Op: op, URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return nil, &RemoteError{Op: op, URL: target, StatusCode: resp.StatusCode, Err: ErrUnexpectedStatus}
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
