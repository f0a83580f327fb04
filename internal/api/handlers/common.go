package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/doclingate/internal/providers/docling"
	"github.com/yoockh/doclingate/internal/utils"
)

// APIError is the failure body of every route.
type APIError struct {
	Error   string     `json:"error"`
	Details string     `json:"details,omitempty"`
	Code    utils.Code `json:"code"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if !errors.As(err, &ae) {
		c.JSON(status, APIError{
			Error:   "Internal server error",
			Details: err.Error(),
			Code:    utils.CodeInternal,
		})
		return
	}

	body := APIError{Error: ae.Message, Code: ae.Code}
	var ue *docling.UpstreamError
	switch {
	case errors.As(err, &ue):
		body.Details = ue.Body
	case ae.Err != nil && !errors.Is(ae.Err, utils.ErrNotFound):
		body.Details = ae.Err.Error()
	}
	if body.Error == "" {
		body.Error = http.StatusText(status)
	}
	c.JSON(status, body)
}

func requireUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "Unauthorized", nil))
	return "", false
}

func writeData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}
