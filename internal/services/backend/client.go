package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"orsi/internal/api"
	"orsi/internal/services"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultUploadTimeout = 10 * time.Minute
	defaultRateLimit     = 20
	defaultRateBurst     = 20
	defaultUserAgent     = "orsi/0.1"
	maxErrorBody         = 4 << 10
)

// ErrUnavailable reports that no backend URL was configured.
var ErrUnavailable = errors.New("backend unavailable")

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options tunes transport behaviour. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	UploadTimeout time.Duration
	RateLimit     rate.Limit
	RateBurst     int
	UserAgent     string
	// HTTPClient overrides the transport for every request; timeouts are then
	// the caller's responsibility.
	HTTPClient HTTPDoer
}

// StatusError is returned when the backend answers with a non-2xx status.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// IsUnavailable reports whether err indicates the backend could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &opErr)
}

// Client talks to the backend REST API.
type Client struct {
	base      *url.URL
	http      HTTPDoer
	upload    HTTPDoer
	limiter   *rate.Limiter
	userAgent string
}

// NewClient validates baseURL and builds a client. A bare host:port is
// treated as http.
func NewClient(baseURL string, opts Options) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "", "api base url is required", ErrUnavailable)
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "backend", baseURL, "parse api base url", err)
	}
	if base.Host == "" {
		return nil, services.Wrap(services.ErrConfiguration, "backend", baseURL, "api base url has no host", nil)
	}
	base.Path = strings.TrimRight(base.Path, "/")
	base.RawPath = ""
	base.RawQuery = ""
	base.Fragment = ""

	opts = normalizeOptions(opts)
	client := &Client{
		base:      base,
		limiter:   rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		userAgent: opts.UserAgent,
	}
	if opts.HTTPClient != nil {
		client.http = opts.HTTPClient
		client.upload = opts.HTTPClient
	} else {
		client.http = &http.Client{Timeout: opts.Timeout}
		client.upload = &http.Client{Timeout: opts.UploadTimeout}
	}
	return client, nil
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = defaultRateBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	return opts
}

// BaseURL returns the normalized API base URL.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// ListVideos fetches the canonical uploaded and processed collections.
func (c *Client) ListVideos(ctx context.Context) (api.VideoCollections, error) {
	var payload api.VideoCollections
	if err := c.getJSON(ctx, c.endpoint("videos"), &payload); err != nil {
		return api.VideoCollections{}, err
	}
	return payload.Clone(), nil
}

// Upload streams r as the multipart field "video" named filename.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (api.UploadResponse, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if err := validateName(name); err != nil {
		return api.UploadResponse{}, err
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("video", name)
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(writer.Close())
	}()

	endpoint := c.endpoint("videos", "upload")
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		return api.UploadResponse{}, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		_ = pr.CloseWithError(err)
		return api.UploadResponse{}, err
	}
	defer resp.Body.Close()
	if err := checkStatus(req, resp); err != nil {
		return api.UploadResponse{}, err
	}

	var payload api.UploadResponse
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return api.UploadResponse{}, fmt.Errorf("read upload response: %w", err)
	}
	if len(bytes.TrimSpace(body)) > 0 {
		// The body is informational; a non-JSON success body is tolerated.
		_ = json.Unmarshal(body, &payload)
	}
	return payload, nil
}

// JobStatus fetches the job status for filename. A 404 is reported as not_found.
func (c *Client) JobStatus(ctx context.Context, filename string) (api.JobStatusResponse, error) {
	if err := validateName(filename); err != nil {
		return api.JobStatusResponse{}, err
	}
	var payload api.JobStatusResponse
	err := c.getJSON(ctx, c.endpoint("videos", "job-status", filename), &payload)
	if IsNotFound(err) {
		return api.JobStatusResponse{Status: api.JobNotFound}, nil
	}
	if err != nil {
		return api.JobStatusResponse{}, err
	}
	return payload, nil
}

// JobProgress fetches status and progress for filename. A 404 is reported as not_found.
func (c *Client) JobProgress(ctx context.Context, filename string) (api.JobProgressResponse, error) {
	if err := validateName(filename); err != nil {
		return api.JobProgressResponse{}, err
	}
	var payload api.JobProgressResponse
	err := c.getJSON(ctx, c.endpoint("videos", "job-progress", filename), &payload)
	if IsNotFound(err) {
		return api.JobProgressResponse{Status: api.JobNotFound}, nil
	}
	if err != nil {
		return api.JobProgressResponse{}, err
	}
	payload.Progress = api.ClampProgress(payload.Progress)
	if payload.Status == api.JobCompleted {
		payload.Progress = 100
	}
	return payload, nil
}

// Delete removes filename from folder.
func (c *Client) Delete(ctx context.Context, folder api.Folder, filename string) error {
	if _, err := api.ParseFolder(string(folder)); err != nil {
		return services.Wrap(services.ErrInvalidInput, "delete", filename, "", err)
	}
	if err := validateName(filename); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, c.endpoint("videos", string(folder), filename), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(req, resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Metadata fetches the JSON metadata document produced for filename. The
// document must be valid JSON; its shape is not interpreted here.
func (c *Client) Metadata(ctx context.Context, filename string) (json.RawMessage, error) {
	if err := validateName(filename); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("videos", "metadata", filename+".json"), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(req, resp); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		return nil, fmt.Errorf("metadata for %s is not a valid JSON document", filename)
	}
	return json.RawMessage(body), nil
}

// StreamURL returns the URL a player can use to stream the video.
func (c *Client) StreamURL(folder api.Folder, filename string) string {
	return c.endpoint("videos", string(folder), filename)
}

// OpenStream starts downloading the video. The returned size is -1 when the
// backend does not announce a Content-Length. Callers must close the reader.
func (c *Client) OpenStream(ctx context.Context, folder api.Folder, filename string) (io.ReadCloser, int64, error) {
	if _, err := api.ParseFolder(string(folder)); err != nil {
		return nil, 0, services.Wrap(services.ErrInvalidInput, "stream", filename, "", err)
	}
	if err := validateName(filename); err != nil {
		return nil, 0, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.StreamURL(folder, filename), nil)
	if err != nil {
		return nil, 0, err
	}
	// Streams can be long; only the context bounds them.
	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if err := checkStatus(req, resp); err != nil {
		resp.Body.Close()
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(req, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	if c == nil {
		return nil, ErrUnavailable
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return c.base.JoinPath(escaped...).String()
}

func checkStatus(req *http.Request, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	statusErr := &StatusError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: resp.StatusCode,
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload api.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		statusErr.Message = strings.TrimSpace(payload.Error)
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		statusErr.Message = text
	}
	return statusErr
}

func validateName(filename string) error {
	trimmed := strings.TrimSpace(filename)
	switch {
	case trimmed == "":
		return services.Wrap(services.ErrInvalidInput, "backend", "", "filename is required", nil)
	case trimmed == "." || trimmed == "..":
		return services.Wrap(services.ErrInvalidInput, "backend", filename, "invalid filename", nil)
	case strings.ContainsAny(trimmed, `/\`):
		return services.Wrap(services.ErrInvalidInput, "backend", filename, "filename must not contain path separators", nil)
	}
	return nil
}
