package handlers

import (
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/doclingate/internal/services"
	"github.com/yoockh/doclingate/internal/utils"
)

type HistoryHandler struct {
	svc services.HistoryService
}

func NewHistoryHandler(svc services.HistoryService) *HistoryHandler {
	return &HistoryHandler{svc: svc}
}

func (h *HistoryHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(c, utils.E(utils.CodeInvalidArgument, "HistoryHandler.List", "Invalid limit", err))
			return
		}
		limit = n
	}

	entries, err := h.svc.List(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, entries)
}

func (h *HistoryHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, services.ToHistoryEntry(rec))
}

// Download serves the stored text (format=txt, default) or markdown
// (format=md). Entries backed by an archive redirect to it unless a text
// format is asked for explicitly.
func (h *HistoryHandler) Download(c *gin.Context) {
	const op = "HistoryHandler.Download"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	res := rec.Result()

	format := strings.ToLower(c.Query("format"))
	if res.ZipFileURL != "" && (format == "" || format == "zip") {
		c.Redirect(http.StatusFound, res.ZipFileURL)
		return
	}

	var body, ext, contentType string
	switch format {
	case "", "txt":
		body, ext, contentType = res.TextContent, ".txt", "text/plain; charset=utf-8"
	case "md":
		body, ext, contentType = res.MDContent, ".md", "text/markdown; charset=utf-8"
	case "zip":
		writeError(c, utils.E(utils.CodeNotFound, op, "No archive for this entry", nil))
		return
	default:
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "format must be txt, md or zip", nil))
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": downloadName(rec.FileName) + ext,
	}))
	c.Data(http.StatusOK, contentType, []byte(body))
}

func (h *HistoryHandler) Delete(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func downloadName(fileName string) string {
	base := path.Base(strings.TrimRight(fileName, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "document"
	}
	return base
}
