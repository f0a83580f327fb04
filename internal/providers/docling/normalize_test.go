package docling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONPrefersTextContent(t *testing.T) {
	res, err := NormalizeJSON([]byte(`{
		"document": {"text_content": "primary", "text": "fallback", "md_content": "# md", "json_content": {"a": 1}},
		"status": "success",
		"processing_time": 1.5,
		"timings": {"convert": 1.2}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "primary", res.TextContent)
	assert.Equal(t, "# md", res.MDContent)
	assert.JSONEq(t, `{"a": 1}`, string(res.JSONContent))
	assert.JSONEq(t, `"success"`, string(res.Status))
	assert.JSONEq(t, `1.5`, string(res.ProcessingTime))
	assert.Nil(t, res.Errors)
}

func TestNormalizeJSONFallbacks(t *testing.T) {
	res, err := NormalizeJSON([]byte(`{"document": {"text_content": "", "text": "plain", "md": "md body", "json_content": null}}`))
	require.NoError(t, err)

	assert.Equal(t, "plain", res.TextContent)
	assert.Equal(t, "md body", res.MDContent)
	assert.Equal(t, "", res.HTMLContent)
	assert.Equal(t, "", res.DoctagsContent)
	assert.JSONEq(t, `{}`, string(res.JSONContent))
}

func TestNormalizeJSONWithoutDocument(t *testing.T) {
	res, err := NormalizeJSON([]byte(`{"status": "failure", "errors": [{"message": "bad pdf"}]}`))
	require.NoError(t, err)

	assert.Equal(t, "", res.TextContent)
	assert.Equal(t, "", res.MDContent)
	assert.JSONEq(t, `[{"message": "bad pdf"}]`, string(res.Errors))
}

func TestNormalizeJSONNonObjectDocument(t *testing.T) {
	for _, body := range []string{`{"document": "x", "status": "success"}`, `{"document": [1, 2]}`, `"just a string"`, `null`} {
		res, err := NormalizeJSON([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, "", res.TextContent, body)
		assert.Equal(t, "", res.MDContent, body)
		assert.JSONEq(t, `{}`, string(res.JSONContent), body)
	}

	res, err := NormalizeJSON([]byte(`{"document": "x", "status": "success"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `"success"`, string(res.Status))
}

func TestNormalizeJSONInvalid(t *testing.T) {
	_, err := NormalizeJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestZipResult(t *testing.T) {
	res := ZipResult("https://cdn.example/u/1-docling.zip")
	assert.Equal(t, "https://cdn.example/u/1-docling.zip", res.ZipFileURL)
	assert.Equal(t, "File processed. Download from: https://cdn.example/u/1-docling.zip", res.TextContent)
	assert.Empty(t, res.MDContent)
}

func TestSourceRequestDisplayName(t *testing.T) {
	assert.Equal(t, "https://x/a.pdf", SourceRequest{HTTPSources: []HTTPSource{{URL: "https://x/a.pdf"}}}.DisplayName())
	assert.Equal(t, "scan.png", SourceRequest{FileSources: []FileSource{{Filename: "scan.png"}}}.DisplayName())
	assert.Equal(t, "document", SourceRequest{}.DisplayName())
}
