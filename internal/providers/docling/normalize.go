package docling

import (
	"encoding/json"
	"fmt"

	"github.com/yoockh/doclingate/internal/models"
)

var emptyObject = json.RawMessage(`{}`)

// NormalizeJSON maps a JSON conversion answer onto the persisted result.
// Missing or empty fields fall back to "" (or {} for json_content); a body or
// document that is not an object counts as empty.
func NormalizeJSON(body []byte) (models.DoclingResult, error) {
	if !json.Valid(body) {
		return models.DoclingResult{}, fmt.Errorf("docling: decode conversion result: invalid JSON")
	}

	top := objectFields(body)
	doc := objectFields(top["document"])
	out := models.DoclingResult{
		TextContent:    firstString(doc, "text_content", "text"),
		MDContent:      firstString(doc, "md_content", "md"),
		HTMLContent:    firstString(doc, "html_content"),
		JSONContent:    emptyObject,
		DoctagsContent: firstString(doc, "doctags_content"),
		Status:         present(top["status"]),
		ProcessingTime: present(top["processing_time"]),
		Timings:        present(top["timings"]),
		Errors:         present(top["errors"]),
	}
	if v, ok := doc["json_content"]; ok && truthy(v) {
		out.JSONContent = v
	}
	return out, nil
}

// objectFields returns the members of a JSON object, or nil for anything else.
func objectFields(raw json.RawMessage) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	return m
}

// ZipResult is the result synthesized for a binary answer stored at url.
func ZipResult(url string) models.DoclingResult {
	return models.DoclingResult{
		TextContent: "File processed. Download from: " + url,
		MDContent:   "",
		JSONContent: emptyObject,
		ZipFileURL:  url,
	}
}

func firstString(doc map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := doc[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}

func present(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func truthy(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
