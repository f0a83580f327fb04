package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/doclingate/internal/providers/docling"
	"github.com/yoockh/doclingate/internal/testutil"
	"github.com/yoockh/doclingate/internal/utils"
)

const userA = "11111111-1111-1111-1111-111111111111"

func upstream(t *testing.T, contentType string, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newConversion(t *testing.T, srv *httptest.Server) (*conversionService, *testutil.ConversionRepo, *testutil.ObjectStore) {
	t.Helper()
	repo := &testutil.ConversionRepo{}
	store := testutil.NewObjectStore("https://cdn.test/user-files")
	yes := true
	preset := docling.Preset{ToFormats: []string{"md", "text"}, DoOCR: &yes}

	svc := NewConversionService(docling.NewClient(srv.URL, "", 0), store, repo, preset).(*conversionService)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc, repo, store
}

func TestConvertUploadNormalizesJSON(t *testing.T) {
	srv := upstream(t, "application/json", http.StatusOK,
		`{"document": {"text": "hello world", "md_content": "# hello"}, "status": "success"}`)
	svc, repo, store := newConversion(t, srv)

	rec, err := svc.ConvertUpload(context.Background(), userA, docling.File{Name: "note.txt", Data: []byte("0123456789")})
	require.NoError(t, err)

	res := rec.Result()
	assert.Equal(t, "hello world", res.TextContent)
	assert.Equal(t, "# hello", res.MDContent)
	assert.JSONEq(t, `{}`, string(res.JSONContent))
	assert.Empty(t, res.ZipFileURL)

	assert.Equal(t, "note.txt", rec.FileName)
	assert.Equal(t, "", rec.FileURL)
	assert.Equal(t, userA, rec.UserID)
	assert.Equal(t, []string{"md", "text"}, []string(rec.RequestedFormats))
	assert.Equal(t, utils.ChecksumHex([]byte("0123456789")), rec.SourceChecksum)
	assert.Equal(t, 1, repo.Len())
	assert.Empty(t, store.Objects)
}

func TestConvertSourceBinaryStoresZip(t *testing.T) {
	zip := "PK\x03\x04 zipped outputs"
	srv := upstream(t, "application/zip", http.StatusOK, zip)
	svc, repo, store := newConversion(t, srv)

	rec, err := svc.ConvertSource(context.Background(), userA, docling.SourceRequest{
		HTTPSources: []docling.HTTPSource{{URL: "https://example.com/paper.pdf"}},
		Options:     map[string]any{"to_formats": []any{"md", "json"}},
	})
	require.NoError(t, err)

	key := userA + "/1700000000123-docling.zip"
	require.Contains(t, store.Objects, key)
	assert.Equal(t, []byte(zip), store.Objects[key])
	assert.Equal(t, "application/zip", store.Types[key])

	res := rec.Result()
	assert.Equal(t, store.PublicURL(key), res.ZipFileURL)
	assert.True(t, strings.HasSuffix(res.TextContent, res.ZipFileURL))
	assert.Equal(t, "https://example.com/paper.pdf", rec.FileName)
	assert.Equal(t, []string{"md", "json"}, []string(rec.RequestedFormats))
	assert.Equal(t, 1, repo.Len())
}

func TestUpstreamFailureInsertsNothing(t *testing.T) {
	srv := upstream(t, "text/plain", http.StatusServiceUnavailable, "queue full")
	svc, repo, _ := newConversion(t, srv)

	_, err := svc.ConvertFiles(context.Background(), userA,
		[]docling.File{{Name: "a.pdf", Data: []byte("a")}}, nil)
	require.Error(t, err)

	assert.True(t, utils.IsCode(err, utils.CodeUpstream))
	assert.Equal(t, http.StatusServiceUnavailable, utils.HTTPStatus(err))
	var ue *docling.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "queue full", ue.Body)
	assert.Equal(t, 0, repo.Len())
}

func TestInsertFailureLeavesBlob(t *testing.T) {
	srv := upstream(t, "application/octet-stream", http.StatusOK, "binary")
	svc, repo, store := newConversion(t, srv)
	repo.InsertErr = errors.New("connection refused")

	_, err := svc.ConvertURL(context.Background(), userA, "https://example.com/a.docx")
	require.Error(t, err)

	assert.True(t, utils.IsCode(err, utils.CodeInternal))
	assert.ErrorContains(t, err, "connection refused")
	assert.Len(t, store.Objects, 1)
}

func TestConvertFilesNamesRowAfterLastFile(t *testing.T) {
	srv := upstream(t, "application/json; charset=utf-8", http.StatusOK, `{"document": {"text_content": "x"}}`)
	svc, _, _ := newConversion(t, srv)

	rec, err := svc.ConvertFiles(context.Background(), userA, []docling.File{
		{Name: "first.pdf", Data: []byte("1")},
		{Name: "last.pdf", Data: []byte("2")},
	}, docling.FormParams{{Key: "to_formats", Value: "text"}})
	require.NoError(t, err)

	assert.Equal(t, "last.pdf", rec.FileName)
	assert.Equal(t, []string{"text"}, []string(rec.RequestedFormats))
	assert.Equal(t, utils.ChecksumHex([]byte("12")), rec.SourceChecksum)
}

func TestConversionValidation(t *testing.T) {
	srv := upstream(t, "application/json", http.StatusOK, `{}`)
	svc, repo, _ := newConversion(t, srv)
	ctx := context.Background()

	_, err := svc.ConvertFiles(ctx, userA, nil, nil)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.ConvertSource(ctx, userA, docling.SourceRequest{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.ConvertURL(ctx, userA, "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))

	_, err = svc.ConvertUpload(ctx, "", docling.File{Name: "a", Data: []byte("a")})
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))

	assert.Equal(t, 0, repo.Len())
}

func TestPersistTaskResultDefaultsName(t *testing.T) {
	srv := upstream(t, "application/json", http.StatusOK, `{"document": {"md": "body"}}`)
	svc, _, _ := newConversion(t, srv)

	rec, err := svc.PersistTaskResult(context.Background(), userA, "task-1", "")
	require.NoError(t, err)
	assert.Equal(t, "remote-source", rec.FileName)
	assert.Equal(t, "body", rec.Result().MDContent)
}
