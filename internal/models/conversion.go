package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type SourceKind string

const (
	SourceFile   SourceKind = "file"   // single upload
	SourceFiles  SourceKind = "files"  // multi-file upload
	SourceURL    SourceKind = "url"    // single url
	SourceRemote SourceKind = "source" // http_sources / file_sources body
	SourceTask   SourceKind = "task"   // async task result
)

// ConversionRecord is one row per conversion in the user_files table.
type ConversionRecord struct {
	ID       string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID   string `gorm:"column:user_id;type:uuid;index:idx_user_files_user_created,priority:1" json:"user_id"`
	FileName string `gorm:"column:file_name;type:text" json:"file_name"`
	FileURL  string `gorm:"column:file_url;type:text" json:"file_url"`

	// opaque normalized payload, see DoclingResult
	DoclingResult datatypes.JSON `gorm:"column:docling_result;type:jsonb" json:"docling_result"`

	SourceKind       SourceKind     `gorm:"column:source_kind;type:text" json:"source_kind"`
	RequestedFormats pq.StringArray `gorm:"column:requested_formats;type:text[]" json:"requested_formats"`
	SourceChecksum   string         `gorm:"column:source_checksum;type:text" json:"source_checksum,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index:idx_user_files_user_created,priority:2,sort:desc" json:"created_at"`
}

func (ConversionRecord) TableName() string { return "user_files" }

// Result decodes the stored payload. A malformed payload yields an empty result.
func (r *ConversionRecord) Result() DoclingResult {
	var out DoclingResult
	if len(r.DoclingResult) > 0 {
		_ = json.Unmarshal(r.DoclingResult, &out)
	}
	return out
}

// DoclingResult is the normalized shape persisted in docling_result.
type DoclingResult struct {
	TextContent    string          `json:"text_content"`
	MDContent      string          `json:"md_content"`
	HTMLContent    string          `json:"html_content"`
	JSONContent    json.RawMessage `json:"json_content"`
	DoctagsContent string          `json:"doctags_content"`

	Status         json.RawMessage `json:"status,omitempty"`
	ProcessingTime json.RawMessage `json:"processing_time,omitempty"`
	Timings        json.RawMessage `json:"timings,omitempty"`
	Errors         json.RawMessage `json:"errors,omitempty"`

	ZipFileURL string `json:"zip_file_url,omitempty"`
}

// HistoryEntry is the display projection of a ConversionRecord.
type HistoryEntry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	Date         time.Time `json:"date"`
	TextPreview  string    `json:"text_preview"`
	FullText     string    `json:"full_text"`
	MarkdownText string    `json:"markdown_text,omitempty"`
	ZipFileURL   string    `json:"zip_file_url,omitempty"`
	Status       string    `json:"status"` // always "success" for persisted rows
}
