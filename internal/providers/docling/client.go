package docling

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient talks to docling-serve at baseURL. timeout <= 0 leaves the
// client without a deadline; the request context still applies.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	hc := &http.Client{}
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		http:    hc,
	}
}

// Endpoint joins path onto the base URL, adding the /v1 segment only when
// the base URL does not carry it already.
func (c *Client) Endpoint(path string) string {
	if strings.Contains(c.baseURL, "/v1") {
		return c.baseURL + path
	}
	return c.baseURL + "/v1" + path
}

func (c *Client) ConvertFile(ctx context.Context, files []File, params FormParams) (*Response, error) {
	if len(files) == 0 {
		return nil, errors.New("docling: no files to convert")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range params {
		if err := w.WriteField(p.Key, p.Value); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint("/convert/file"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req)
}

func (c *Client) ConvertSource(ctx context.Context, sr SourceRequest) (*Response, error) {
	req, err := c.jsonRequest(ctx, "/convert/source", sr)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) ConvertSourceAsync(ctx context.Context, sr SourceRequest) (json.RawMessage, error) {
	req, err := c.jsonRequest(ctx, "/convert/source/async", sr)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return rawJSON(resp.Body)
}

func (c *Client) PollStatus(ctx context.Context, taskID string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint("/status/poll/"+url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return rawJSON(resp.Body)
}

func (c *Client) Result(ctx context.Context, taskID string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint("/result/"+url.PathEscape(taskID)), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) jsonRequest(ctx context.Context, path string, body any) (*http.Request, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("docling: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(path), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request) (*Response, error) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(body)
		if readErr != nil {
			text = "Unknown error"
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return nil, &UpstreamError{Status: status, Body: text}
	}
	if readErr != nil {
		return nil, fmt.Errorf("docling: read response: %w", readErr)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func rawJSON(b []byte) (json.RawMessage, error) {
	if !json.Valid(b) {
		return nil, errors.New("docling: response is not valid JSON")
	}
	return json.RawMessage(b), nil
}
