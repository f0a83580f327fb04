package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/providers/docling"
	pgrepo "github.com/yoockh/doclingate/internal/repositories/postgres"
	"github.com/yoockh/doclingate/internal/storage"
	"github.com/yoockh/doclingate/internal/utils"
	"gorm.io/datatypes"
)

const (
	msgProcessFailed = "Failed to process document"
	msgInternal      = "Internal server error"
)

// ConversionService forwards documents upstream, normalizes the answer and
// records one history row per successful call.
type ConversionService interface {
	ConvertUpload(ctx context.Context, userID string, file docling.File) (*models.ConversionRecord, error)
	ConvertURL(ctx context.Context, userID string, url string) (*models.ConversionRecord, error)
	ConvertFiles(ctx context.Context, userID string, files []docling.File, params docling.FormParams) (*models.ConversionRecord, error)
	ConvertSource(ctx context.Context, userID string, req docling.SourceRequest) (*models.ConversionRecord, error)
	PersistTaskResult(ctx context.Context, userID, taskID, displayName string) (*models.ConversionRecord, error)
}

type conversionService struct {
	docling docling.Provider
	store   storage.ObjectStore
	repo    pgrepo.ConversionRepository
	preset  docling.Preset
	now     func() time.Time
}

func NewConversionService(p docling.Provider, store storage.ObjectStore, repo pgrepo.ConversionRepository, preset docling.Preset) ConversionService {
	return &conversionService{
		docling: p,
		store:   store,
		repo:    repo,
		preset:  preset,
		now:     time.Now,
	}
}

func (s *conversionService) ConvertUpload(ctx context.Context, userID string, file docling.File) (*models.ConversionRecord, error) {
	const op = "ConversionService.ConvertUpload"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if file.Name == "" && len(file.Data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "No file or URL provided", nil)
	}

	resp, err := s.docling.ConvertFile(ctx, []docling.File{file}, s.preset.FormParams())
	if err != nil {
		return nil, upstreamErr(op, msgProcessFailed, err)
	}

	return s.finish(ctx, op, userID, resp, &models.ConversionRecord{
		FileName:         file.Name,
		SourceKind:       models.SourceFile,
		RequestedFormats: s.preset.ToFormats,
		SourceChecksum:   utils.ChecksumHex(file.Data),
	})
}

func (s *conversionService) ConvertURL(ctx context.Context, userID string, url string) (*models.ConversionRecord, error) {
	const op = "ConversionService.ConvertURL"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if url == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "No file or URL provided", nil)
	}

	resp, err := s.docling.ConvertSource(ctx, docling.SourceRequest{
		Options:     s.preset.Options(),
		HTTPSources: []docling.HTTPSource{{URL: url}},
	})
	if err != nil {
		return nil, upstreamErr(op, msgProcessFailed, err)
	}

	return s.finish(ctx, op, userID, resp, &models.ConversionRecord{
		FileName:         url,
		SourceKind:       models.SourceURL,
		RequestedFormats: s.preset.ToFormats,
	})
}

func (s *conversionService) ConvertFiles(ctx context.Context, userID string, files []docling.File, params docling.FormParams) (*models.ConversionRecord, error) {
	const op = "ConversionService.ConvertFiles"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if len(files) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "No files provided", nil)
	}

	resp, err := s.docling.ConvertFile(ctx, files, params)
	if err != nil {
		return nil, upstreamErr(op, msgProcessFailed, err)
	}

	sum := utils.NewChecksum()
	for _, f := range files {
		_, _ = sum.Write(f.Data)
	}

	// one aggregate row, named after the last file
	return s.finish(ctx, op, userID, resp, &models.ConversionRecord{
		FileName:         files[len(files)-1].Name,
		SourceKind:       models.SourceFiles,
		RequestedFormats: params.Values("to_formats"),
		SourceChecksum:   sum.Hex(),
	})
}

func (s *conversionService) ConvertSource(ctx context.Context, userID string, req docling.SourceRequest) (*models.ConversionRecord, error) {
	const op = "ConversionService.ConvertSource"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if req.Empty() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Provide http_sources or file_sources", nil)
	}

	resp, err := s.docling.ConvertSource(ctx, req)
	if err != nil {
		return nil, upstreamErr(op, msgProcessFailed, err)
	}

	return s.finish(ctx, op, userID, resp, &models.ConversionRecord{
		FileName:         req.DisplayName(),
		SourceKind:       models.SourceRemote,
		RequestedFormats: stringList(req.Options["to_formats"]),
	})
}

func (s *conversionService) PersistTaskResult(ctx context.Context, userID, taskID, displayName string) (*models.ConversionRecord, error) {
	const op = "ConversionService.PersistTaskResult"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if taskID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing task_id", nil)
	}
	if displayName == "" {
		displayName = "remote-source"
	}

	resp, err := s.docling.Result(ctx, taskID)
	if err != nil {
		return nil, upstreamErr(op, "Failed to fetch result", err)
	}

	return s.finish(ctx, op, userID, resp, &models.ConversionRecord{
		FileName:   displayName,
		SourceKind: models.SourceTask,
	})
}

// finish normalizes resp, stores binary output when needed and inserts rec.
// A blob uploaded before a failed insert is left in place.
func (s *conversionService) finish(ctx context.Context, op, userID string, resp *docling.Response, rec *models.ConversionRecord) (*models.ConversionRecord, error) {
	result, err := s.normalize(ctx, userID, resp)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, msgInternal, err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, msgInternal, err)
	}

	rec.ID = uuid.NewString()
	rec.UserID = userID
	rec.FileURL = ""
	rec.DoclingResult = datatypes.JSON(payload)
	rec.CreatedAt = s.now().UTC()

	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, utils.E(utils.CodeInternal, op, msgInternal, err)
	}
	return rec, nil
}

func (s *conversionService) normalize(ctx context.Context, userID string, resp *docling.Response) (models.DoclingResult, error) {
	if resp.IsJSON() {
		return docling.NormalizeJSON(resp.Body)
	}

	if s.store == nil {
		return models.DoclingResult{}, errors.New("object storage is not configured")
	}
	objectName := storage.ConversionObjectName(userID, s.now().UnixMilli())
	path, err := s.store.Upload(ctx, objectName, "application/zip", bytes.NewReader(resp.Body))
	if err != nil {
		return models.DoclingResult{}, err
	}
	return docling.ZipResult(s.store.PublicURL(path)), nil
}

// upstreamErr keeps the upstream status for non-2xx answers; anything else
// (network, encoding) is an internal error.
func upstreamErr(op, msg string, err error) error {
	var ue *docling.UpstreamError
	if errors.As(err, &ue) {
		return utils.E(utils.CodeUpstream, op, msg, ue)
	}
	return utils.E(utils.CodeInternal, op, msgInternal, err)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
