package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/modelhub/internal/archive"
)

// Form field names expected by /add_model.
const (
	FieldModelName     = "model_name"
	FieldTask          = "task"
	FieldModelArchive  = "model.zip"
	FieldTokenizerFile = "tokenizer.zip"
)

// Client talks to the registry API. It never retries; callers decide when to call again.
type Client struct {
	base   *url.URL
	http   *http.Client
	upload *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the client used for reads and JSON posts.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithUploadTimeout bounds a multipart upload. Archives can be large, so this is
// kept separate from the read timeout.
func WithUploadTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.upload = &http.Client{Timeout: d, Transport: cl.http.Transport} }
}

// NewClient returns a client rooted at baseURL (the API_URL).
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	if c.upload == nil {
		c.upload = c.http
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// ListApproved fetches GET /approved-models.
func (c *Client) ListApproved(ctx context.Context) ([]Model, error) {
	return c.listModels(ctx, "list approved", "/approved-models")
}

// ListPending fetches GET /pending-models.
func (c *Client) ListPending(ctx context.Context) ([]Model, error) {
	return c.listModels(ctx, "list pending", "/pending-models")
}

func (c *Client) listModels(ctx context.Context, op, path string) ([]Model, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(path, nil), nil)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, serverError(op, resp)
	}
	var out []Model
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("decode: %w", err)}
	}
	if out == nil {
		out = []Model{}
	}
	return out, nil
}

// AddModel posts a multipart upload to /add_model. The body is streamed so
// archives are never held in memory.
func (c *Client) AddModel(ctx context.Context, r UploadRequest) error {
	const op = "add model"
	if err := r.Validate(); err != nil {
		return err
	}
	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUploadForm(mw, r))
	}()
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/add_model", nil), pr)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.upload.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverError(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func writeUploadForm(mw *multipart.Writer, r UploadRequest) error {
	if err := mw.WriteField(FieldModelName, r.ModelName); err != nil {
		return err
	}
	if err := mw.WriteField(FieldTask, r.Task); err != nil {
		return err
	}
	if err := writeArchivePart(mw, FieldModelArchive, r.Model); err != nil {
		return err
	}
	if err := writeArchivePart(mw, FieldTokenizerFile, r.Tokenizer); err != nil {
		return err
	}
	return mw.Close()
}

func writeArchivePart(mw *multipart.Writer, field string, f archive.File) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer src.Close()
	part, err := mw.CreateFormFile(field, f.Name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", f.Name, err)
	}
	return nil
}

// AggregateModels posts to /aggregate_models. The response body is not inspected;
// only failures to dispatch or non-2xx statuses are reported.
func (c *Client) AggregateModels(ctx context.Context, r AggregationRequest) error {
	const op = "aggregate models"
	if err := r.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(r)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("/aggregate_models", nil), bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return serverError(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ArtifactURL is the download address for a model's ledger block reference.
func (c *Client) ArtifactURL(nftID string) string {
	return c.endpoint("/fetch_model", url.Values{"nft_id": {nftID}})
}

// FetchArtifact streams GET /fetch_model into w and returns the file name the
// server suggested (or <nft_id>.zip) and the number of bytes written.
func (c *Client) FetchArtifact(ctx context.Context, nftID string, w io.Writer) (string, int64, error) {
	const op = "fetch model"
	if strings.TrimSpace(nftID) == "" {
		return "", 0, Invalid("nft_id", "model has no ledger block reference")
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.ArtifactURL(nftID), nil)
	if err != nil {
		return "", 0, &TransportError{Op: op, Err: err}
	}
	resp, err := c.upload.Do(req)
	if err != nil {
		return "", 0, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, serverError(op, resp)
	}
	name := nftID + archive.Extension
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if fn := strings.TrimSpace(params["filename"]); fn != "" {
			name = fn
		}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return name, n, &TransportError{Op: op, Err: err}
	}
	return name, n, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	return req, nil
}

func serverError(op string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &payload)
	return &ServerError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(payload.Error)}
}
