package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct{ status int }

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e statusErr) StatusCode() int { return e.status }

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", E(CodeInvalidArgument, "op", "bad", nil), http.StatusBadRequest},
		{"unauthorized", E(CodeUnauthorized, "op", "no", nil), http.StatusUnauthorized},
		{"forbidden", E(CodeForbidden, "op", "no", nil), http.StatusForbidden},
		{"not found", E(CodeNotFound, "op", "gone", nil), http.StatusNotFound},
		{"too large", E(CodeTooLarge, "op", "big", nil), http.StatusRequestEntityTooLarge},
		{"upstream keeps status", E(CodeUpstream, "op", "up", statusErr{422}), http.StatusUnprocessableEntity},
		{"upstream without status", E(CodeUpstream, "op", "up", errors.New("boom")), http.StatusInternalServerError},
		{"internal", E(CodeInternal, "op", "x", nil), http.StatusInternalServerError},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestAppErrorFormatting(t *testing.T) {
	err := E(CodeInternal, "HistoryService.List", "failed to list history", errors.New("conn reset"))
	assert.Equal(t, "HistoryService.List: failed to list history: conn reset", err.Error())
	assert.True(t, IsCode(err, CodeInternal))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.ErrorContains(t, errors.Unwrap(err), "conn reset")
}

func TestChecksum(t *testing.T) {
	c := NewChecksum()
	_, _ = c.Write([]byte("hello "))
	_, _ = c.Write([]byte("world"))
	assert.Equal(t, ChecksumHex([]byte("hello world")), c.Hex())
	assert.Len(t, c.Hex(), 64)
}
