// Package transport issues authenticated requests against the SACCO REST
// backend. A request rejected with 401 triggers at most one token refresh
// followed by one retry; a second rejection tears the session down.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	applog "sacco/internal/log"
	"sacco/internal/session"
)

const maxBodyBytes = 32 << 20

// Options configures a Client.
type Options struct {
	BaseURL     string
	RefreshPath string
	HTTPClient  *http.Client
	Timeout     time.Duration
	Store       session.Store
	// OnLogout is invoked after the session has been cleared because the
	// access token could not be renewed. Callers use it to route the user
	// back to the login entry point.
	OnLogout func(ctx context.Context)
	Logger   *applog.Logger
}

// Client is the Transport Client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	refresher  *Refresher
	onLogout   func(ctx context.Context)
	logger     *applog.Logger
}

// Request describes one logical call. Body may be nil, a *File for
// multipart uploads, a json.RawMessage, or any JSON-serializable value.
type Request struct {
	Method   string
	Endpoint string
	Query    url.Values
	Body     any
	Header   http.Header
}

// File is a multipart upload payload. Data is kept in memory so the
// request can be rebuilt for the retry after a token refresh.
type File struct {
	FieldName string
	FileName  string
	Data      []byte
	Fields    map[string]string
}

// Response is a successful (2xx) backend response.
type Response struct {
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// IsJSON reports whether the response declared a structured content type.
func (r *Response) IsJSON() bool {
	return isJSONContentType(r.ContentType)
}

// Decode unmarshals a structured body into v.
func (r *Response) Decode(v any) error {
	if !r.IsJSON() {
		return fmt.Errorf("response is %q, not JSON", r.ContentType)
	}
	return json.Unmarshal(r.Body, v)
}

// Value returns the decoded JSON body for structured responses and the raw
// text otherwise. An empty body yields "" for either content type.
func (r *Response) Value() (any, error) {
	if !r.IsJSON() {
		return string(r.Body), nil
	}
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return "", nil
	}
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return v, nil
}

// New creates a Client. The store is required; it is the only source of
// bearer tokens.
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentTransport)

	refreshPath := opts.RefreshPath
	if strings.TrimSpace(refreshPath) == "" {
		refreshPath = DefaultRefreshPath
	}

	c := &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: httpClient,
		store:      opts.Store,
		onLogout:   opts.OnLogout,
		logger:     logger,
	}
	c.refresher = newRefresher(c.resolve(refreshPath), httpClient, opts.Store, logger)
	return c, nil
}

// Refresher exposes the token refresh coordinator.
func (c *Client) Refresher() *Refresher {
	return c.refresher
}

// Get is a shorthand for a GET Send.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (*Response, error) {
	return c.Send(ctx, Request{Method: http.MethodGet, Endpoint: endpoint, Query: query})
}

// Post is a shorthand for a POST Send.
func (c *Client) Post(ctx context.Context, endpoint string, body any) (*Response, error) {
	return c.Send(ctx, Request{Method: http.MethodPost, Endpoint: endpoint, Body: body})
}

type sendState int

const (
	stateSending sendState = iota
	stateRefreshing
	stateRetrying
	stateDone
)

func (s sendState) String() string {
	switch s {
	case stateSending:
		return "sending"
	case stateRefreshing:
		return "refreshing"
	case stateRetrying:
		return "retrying"
	case stateDone:
		return "done"
	}
	return "unknown"
}

// Send performs req. The flow is sending → (refreshing → retrying) → done,
// with at most one refresh per call. Errors are *NetworkError, *APIError or
// *AuthError.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	requestID := applog.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var (
		resp      *Response
		tokenUsed string
		err       error
	)
	state := stateSending
	for {
		c.logger.DebugContext(ctx, "Transport state",
			"state", state.String(), applog.FieldEndpoint, req.Endpoint, applog.FieldRequestID, requestID)

		switch state {
		case stateSending, stateRetrying:
			resp, tokenUsed, err = c.do(ctx, req, requestID)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusUnauthorized {
				state = stateDone
				continue
			}
			if state == stateRetrying {
				return nil, c.teardown(ctx, req.Endpoint, "token rejected after refresh")
			}
			state = stateRefreshing

		case stateRefreshing:
			if !c.refresher.renew(ctx, tokenUsed, false) {
				return nil, c.teardown(ctx, req.Endpoint, "token refresh failed")
			}
			state = stateRetrying

		case stateDone:
			if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
				return resp, nil
			}
			return nil, newAPIError(req.Endpoint, resp)
		}
	}
}

func (c *Client) do(ctx context.Context, req Request, requestID string) (*Response, string, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body for %s: %w", req.Endpoint, err)
	}

	target := c.resolve(req.Endpoint)
	if len(req.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, "", fmt.Errorf("build request for %s: %w", req.Endpoint, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	sess, err := c.store.Get(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("read session: %w", err)
	}
	if sess.AccessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "Backend unreachable",
			applog.FieldEndpoint, req.Endpoint, applog.FieldMethod, req.Method, applog.FieldError, err)
		return nil, "", &NetworkError{Method: req.Method, Endpoint: req.Endpoint, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", &NetworkError{Method: req.Method, Endpoint: req.Endpoint, Err: err}
	}

	c.logger.DebugContext(ctx, "Backend responded",
		applog.FieldEndpoint, req.Endpoint,
		applog.FieldMethod, req.Method,
		applog.FieldStatusCode, httpResp.StatusCode,
		applog.FieldDuration, time.Since(start).Milliseconds())

	return &Response{
		StatusCode:  httpResp.StatusCode,
		ContentType: httpResp.Header.Get("Content-Type"),
		Header:      httpResp.Header,
		Body:        raw,
	}, sess.AccessToken, nil
}

// teardown clears the session and signals the logout callback.
func (c *Client) teardown(ctx context.Context, endpoint, reason string) error {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "Failed to clear session", applog.FieldError, err)
	}
	c.logger.WarnContext(ctx, "Session ended, login required",
		applog.FieldOperation, applog.OpLogout, applog.FieldEndpoint, endpoint, "reason", reason)
	if c.onLogout != nil {
		c.onLogout(ctx)
	}
	return &AuthError{Endpoint: endpoint, Reason: reason, LoggedOut: true}
}

// resolve joins endpoint onto the base URL. Absolute URLs, such as
// pagination links, are used as-is.
func (c *Client) resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case *File:
		return encodeMultipart(b)
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}

// encodeMultipart builds the upload body. The content type comes from the
// multipart writer (it carries the boundary), never application/json.
func encodeMultipart(f *File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range f.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	field := f.FieldName
	if field == "" {
		field = "file"
	}
	name := f.FileName
	if name == "" {
		name = "upload"
	}
	part, err := w.CreateFormFile(field, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func newAPIError(endpoint string, resp *Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Raw: resp.Body}
	var decoded any
	if len(bytes.TrimSpace(resp.Body)) > 0 && json.Unmarshal(resp.Body, &decoded) == nil {
		apiErr.Body = decoded
	} else {
		apiErr.Body = string(resp.Body)
	}
	return apiErr
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
