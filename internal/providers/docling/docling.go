package docling

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Provider is the external document-conversion service.
type Provider interface {
	ConvertFile(ctx context.Context, files []File, params FormParams) (*Response, error)
	ConvertSource(ctx context.Context, req SourceRequest) (*Response, error)
	ConvertSourceAsync(ctx context.Context, req SourceRequest) (json.RawMessage, error)
	PollStatus(ctx context.Context, taskID string) (json.RawMessage, error)
	Result(ctx context.Context, taskID string) (*Response, error)
}

type File struct {
	Name string
	Data []byte
}

type Param struct {
	Key   string
	Value string
}

// FormParams keeps multipart fields in order; list params repeat their key.
type FormParams []Param

func (p FormParams) Values(key string) []string {
	var out []string
	for _, kv := range p {
		if kv.Key == key {
			out = append(out, kv.Value)
		}
	}
	return out
}

// Multipart fields forwarded to /convert/file.
var (
	ListParams   = []string{"from_formats", "to_formats", "ocr_lang"}
	SingleParams = []string{
		"image_export_mode", "do_ocr", "force_ocr", "ocr_engine", "pdf_backend",
		"table_mode", "abort_on_error", "do_table_structure", "include_images", "images_scale",
	}
)

type HTTPSource struct {
	URL     string         `json:"url"`
	Headers map[string]any `json:"headers,omitempty"`
}

type FileSource struct {
	Base64String string `json:"base64_string"`
	Filename     string `json:"filename"`
}

type SourceRequest struct {
	Options     map[string]any `json:"options,omitempty"`
	HTTPSources []HTTPSource   `json:"http_sources,omitempty"`
	FileSources []FileSource   `json:"file_sources,omitempty"`
}

func (r SourceRequest) Empty() bool {
	return len(r.HTTPSources) == 0 && len(r.FileSources) == 0
}

// DisplayName is the name a history row gets for this request.
func (r SourceRequest) DisplayName() string {
	if len(r.HTTPSources) > 0 && r.HTTPSources[0].URL != "" {
		return r.HTTPSources[0].URL
	}
	if len(r.FileSources) > 0 && r.FileSources[0].Filename != "" {
		return r.FileSources[0].Filename
	}
	return "document"
}

// Response is a successful upstream answer, body fully read.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.ContentType), "application/json")
}

// UpstreamError is a non-2xx answer from the conversion service.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("docling responded %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) StatusCode() int { return e.Status }

// TaskStatus is the subset of a task handle the gateway reads.
type TaskStatus struct {
	TaskID       string `json:"task_id"`
	TaskStatus   string `json:"task_status"`
	TaskPosition *int   `json:"task_position,omitempty"`
}

func ParseTask(raw json.RawMessage) (TaskStatus, error) {
	var ts TaskStatus
	err := json.Unmarshal(raw, &ts)
	return ts, err
}

// IsTerminal reports whether a task status will not change anymore.
func IsTerminal(status string) bool {
	switch strings.ToLower(status) {
	case "success", "failure", "partial_success", "skipped":
		return true
	}
	return false
}
