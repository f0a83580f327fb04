package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/providers/docling"
	"github.com/yoockh/doclingate/internal/services"
	"github.com/yoockh/doclingate/internal/utils"
)

const multipartMemory = 32 << 20

type ConvertHandler struct {
	conversions services.ConversionService
	tasks       services.TaskService
	maxUpload   int64
}

func NewConvertHandler(conversions services.ConversionService, tasks services.TaskService, maxUpload int64) *ConvertHandler {
	return &ConvertHandler{conversions: conversions, tasks: tasks, maxUpload: maxUpload}
}

// Convert handles a single multipart "file" or a form "url".
func (h *ConvertHandler) Convert(c *gin.Context) {
	const op = "ConvertHandler.Convert"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.parseForm(c, op); err != nil {
		writeError(c, err)
		return
	}

	var (
		files []docling.File
		err   error
	)
	if form := c.Request.MultipartForm; form != nil {
		if files, err = readFiles(form.File["file"]); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "Failed to read upload", err))
			return
		}
	}

	ctx := c.Request.Context()
	var rec *models.ConversionRecord
	switch {
	case len(files) > 0:
		rec, err = h.conversions.ConvertUpload(ctx, userID, files[0])
	case c.PostForm("url") != "":
		rec, err = h.conversions.ConvertURL(ctx, userID, c.PostForm("url"))
	default:
		err = utils.E(utils.CodeInvalidArgument, op, "No file or URL provided", nil)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, rec)
}

// ConvertFile forwards repeated "files" parts plus the known docling params.
func (h *ConvertHandler) ConvertFile(c *gin.Context) {
	const op = "ConvertHandler.ConvertFile"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if err := h.parseForm(c, op); err != nil {
		writeError(c, err)
		return
	}

	form := c.Request.MultipartForm
	if form == nil || len(form.File["files"]) == 0 {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "No files provided", nil))
		return
	}
	files, err := readFiles(form.File["files"])
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "Failed to read upload", err))
		return
	}

	rec, err := h.conversions.ConvertFiles(c.Request.Context(), userID, files, forwardParams(form.Value))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, rec)
}

func (h *ConvertHandler) ConvertSource(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	req, ok := h.bindSource(c, "ConvertHandler.ConvertSource")
	if !ok {
		return
	}

	rec, err := h.conversions.ConvertSource(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, rec)
}

func (h *ConvertHandler) ConvertSourceAsync(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	req, ok := h.bindSource(c, "ConvertHandler.ConvertSourceAsync")
	if !ok {
		return
	}

	task, err := h.tasks.StartAsync(c.Request.Context(), userID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *ConvertHandler) PollStatus(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Poll(c.Request.Context(), userID, c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"success": true, "task": task})
}

func (h *ConvertHandler) Result(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	rec, err := h.tasks.Result(c.Request.Context(), userID, c.Param("task_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	writeData(c, rec)
}

func (h *ConvertHandler) parseForm(c *gin.Context, op string) error {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
	err := c.Request.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return utils.E(utils.CodeTooLarge, op, "Upload too large", err)
	}
	return utils.E(utils.CodeInvalidArgument, op, "Invalid form data", err)
}

func (h *ConvertHandler) bindSource(c *gin.Context, op string) (docling.SourceRequest, bool) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	var req docling.SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, utils.E(utils.CodeTooLarge, op, "Upload too large", err))
		} else {
			writeError(c, utils.E(utils.CodeInvalidArgument, op, "Invalid request body", err))
		}
		return req, false
	}
	if req.Empty() {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "Provide http_sources or file_sources", nil))
		return req, false
	}
	return req, true
}

func readFiles(headers []*multipart.FileHeader) ([]docling.File, error) {
	out := make([]docling.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, docling.File{Name: fh.Filename, Data: data})
	}
	return out, nil
}

// forwardParams keeps only the form fields docling-serve understands.
func forwardParams(values map[string][]string) docling.FormParams {
	var out docling.FormParams
	for _, k := range docling.ListParams {
		for _, v := range values[k] {
			out = append(out, docling.Param{Key: k, Value: v})
		}
	}
	for _, k := range docling.SingleParams {
		if vs := values[k]; len(vs) > 0 {
			out = append(out, docling.Param{Key: k, Value: vs[0]})
		}
	}
	return out
}
