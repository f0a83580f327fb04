package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/yoockh/doclingate/internal/models"
	pgrepo "github.com/yoockh/doclingate/internal/repositories/postgres"
	"github.com/yoockh/doclingate/internal/utils"
)

const previewLen = 100

type HistoryService interface {
	List(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
	Get(ctx context.Context, userID, id string) (*models.ConversionRecord, error)
	Delete(ctx context.Context, userID, id string) error
}

type historyService struct {
	repo pgrepo.ConversionRepository
}

func NewHistoryService(repo pgrepo.ConversionRepository) HistoryService {
	return &historyService{repo: repo}
}

func (s *historyService) List(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	const op = "HistoryService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}

	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, msgInternal, err)
	}

	out := make([]models.HistoryEntry, 0, len(rows))
	for i := range rows {
		out = append(out, ToHistoryEntry(&rows[i]))
	}
	return out, nil
}

func (s *historyService) Get(ctx context.Context, userID, id string) (*models.ConversionRecord, error) {
	const op = "HistoryService.Get"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing id", nil)
	}
	if !isRowID(id) {
		return nil, utils.E(utils.CodeNotFound, op, "History entry not found", utils.ErrNotFound)
	}

	rec, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "History entry not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, msgInternal, err)
	}
	return rec, nil
}

func (s *historyService) Delete(ctx context.Context, userID, id string) error {
	const op = "HistoryService.Delete"

	if userID == "" {
		return utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if id == "" {
		return utils.E(utils.CodeInvalidArgument, op, "Missing id", nil)
	}
	if !isRowID(id) {
		return utils.E(utils.CodeNotFound, op, "History entry not found", utils.ErrNotFound)
	}

	n, err := s.repo.DeleteByID(ctx, userID, id)
	if err != nil {
		return utils.E(utils.CodeInternal, op, msgInternal, err)
	}
	if n == 0 {
		return utils.E(utils.CodeNotFound, op, "History entry not found", utils.ErrNotFound)
	}
	return nil
}

// isRowID accepts only the canonical 36-character UUID form Postgres stores.
func isRowID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// ToHistoryEntry projects a stored row for display and restore.
func ToHistoryEntry(rec *models.ConversionRecord) models.HistoryEntry {
	res := rec.Result()

	preview := res.TextContent
	if r := []rune(preview); len(r) > previewLen {
		preview = string(r[:previewLen])
	}
	if preview == "" {
		preview = "No preview"
	}

	return models.HistoryEntry{
		ID:           rec.ID,
		FileName:     rec.FileName,
		Date:         rec.CreatedAt,
		TextPreview:  preview,
		FullText:     res.TextContent,
		MarkdownText: res.MDContent,
		ZipFileURL:   res.ZipFileURL,
		Status:       "success",
	}
}
