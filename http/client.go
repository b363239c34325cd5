package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fwojciec/sitegen"
	sitegenjson "github.com/fwojciec/sitegen/json"
)

// Client calls a sitegen server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Generate starts a generation and returns a reader over its events.
// Rejections before the stream starts come back as the matching sentinel
// error.
func (c *Client) Generate(ctx context.Context, ownerID int64, prompt string, format sitegen.Format) (*EventReader, error) {
	q := url.Values{}
	q.Set("appId", strconv.FormatInt(ownerID, 10))
	q.Set("message", prompt)
	q.Set("format", string(format))

	resp, err := c.get(ctx, PathGenerate, q)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return newEventReader(resp.Body), nil
}

// Stop cancels the active generation for ownerID.
func (c *Client) Stop(ctx context.Context, ownerID int64) error {
	q := url.Values{}
	q.Set("appId", strconv.FormatInt(ownerID, 10))
	resp, err := c.get(ctx, PathStop, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: %w: %w", sitegen.ErrUpstream, err)
	}
	return resp, nil
}

func decodeError(resp *http.Response) error {
	var env envelope
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		msg = env.Message
	}
	return fmt.Errorf("http: status %d: %s: %w", resp.StatusCode, msg, errorFor(resp.StatusCode))
}

// EventReader reads wire events from an SSE response body.
type EventReader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func newEventReader(body io.ReadCloser) *EventReader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &EventReader{body: body, scanner: sc}
}

// Next returns the next event. It returns io.EOF after a terminal event or
// when the server closes the stream, which is how cancellation looks.
func (r *EventReader) Next() (sitegen.WireEvent, error) {
	if r.done {
		return nil, io.EOF
	}
	var name string
	var data strings.Builder
	seen := false
	for r.scanner.Scan() {
		line := r.scanner.Text()
		switch {
		case line == "":
			if !seen {
				continue
			}
			ev, err := sitegenjson.DecodeWireEvent(name, []byte(data.String()))
			if err != nil {
				return nil, fmt.Errorf("http: %w: %w", sitegen.ErrUpstream, err)
			}
			switch ev.(type) {
			case sitegen.WireDone, sitegen.WireError:
				r.done = true
			}
			return ev, nil
		case strings.HasPrefix(line, "event:"):
			name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			seen = true
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			seen = true
		}
	}
	r.done = true
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("http: read stream: %w: %w", sitegen.ErrUpstream, err)
	}
	return nil, io.EOF
}

// Close releases the response body, which also ends the server-side
// session if it is still running.
func (r *EventReader) Close() error {
	r.done = true
	return r.body.Close()
}
