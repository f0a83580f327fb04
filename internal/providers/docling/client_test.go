package docling

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointJoin(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://docling:5001/v1", "http://docling:5001/v1/convert/file"},
		{"http://docling:5001/v1/", "http://docling:5001/v1/convert/file"},
		{"http://docling:5001", "http://docling:5001/v1/convert/file"},
		{"https://api.example.com/docling/v1alpha", "https://api.example.com/docling/v1alpha/convert/file"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NewClient(tc.base, "", 0).Endpoint("/convert/file"), tc.base)
	}
}

func TestClientTimeoutIsOptIn(t *testing.T) {
	assert.Zero(t, NewClient("http://docling:5001", "", 0).http.Timeout)
	assert.Zero(t, NewClient("http://docling:5001", "", -time.Second).http.Timeout)
	assert.Equal(t, 90*time.Second, NewClient("http://docling:5001", "", 90*time.Second).http.Timeout)
}

func TestConvertFileSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/convert/file", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, []string{"md", "text"}, r.MultipartForm.Value["to_formats"])
		assert.Equal(t, []string{"true"}, r.MultipartForm.Value["do_ocr"])

		files := r.MultipartForm.File["files"]
		require.Len(t, files, 2)
		assert.Equal(t, "a.pdf", files[0].Filename)
		f, err := files[1].Open()
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		assert.Equal(t, "second", string(b))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"document":{"text_content":"ok"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 0)
	resp, err := c.ConvertFile(context.Background(),
		[]File{{Name: "a.pdf", Data: []byte("first")}, {Name: "b.pdf", Data: []byte("second")}},
		FormParams{{"to_formats", "md"}, {"to_formats", "text"}, {"do_ocr", "true"}},
	)
	require.NoError(t, err)
	assert.True(t, resp.IsJSON())
}

func TestConvertSourceOmitsEmptyOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/convert/source", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-Api-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasOptions := body["options"]
		assert.False(t, hasOptions)
		assert.Len(t, body["http_sources"], 1)

		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL+"/v1", "", 0).ConvertSource(context.Background(), SourceRequest{
		HTTPSources: []HTTPSource{{URL: "https://example.com/a.pdf"}},
	})
	require.NoError(t, err)
	assert.False(t, resp.IsJSON())
	assert.Equal(t, []byte("PK\x03\x04"), resp.Body)
}

func TestUpstreamErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "task not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 0).Result(context.Background(), "abc")
	require.Error(t, err)

	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusNotFound, ue.StatusCode())
	assert.Contains(t, ue.Body, "task not found")
}

func TestPollStatusEscapesTaskID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/status/poll/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"task_id":"a/b","task_status":"started"}`))
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL, "", 0).PollStatus(context.Background(), "a/b")
	require.NoError(t, err)

	ts, err := ParseTask(raw)
	require.NoError(t, err)
	assert.Equal(t, "started", ts.TaskStatus)
	assert.False(t, IsTerminal(ts.TaskStatus))
	assert.True(t, IsTerminal("SUCCESS"))
}

func TestPollStatusRejectsNonJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", 0).PollStatus(context.Background(), "t")
	assert.Error(t, err)
}
