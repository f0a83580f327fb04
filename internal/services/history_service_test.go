package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/testutil"
	"github.com/yoockh/doclingate/internal/utils"
	"gorm.io/datatypes"
)

const userB = "22222222-2222-2222-2222-222222222222"

const (
	idOld     = "0b5e4c1a-0000-4000-8000-000000000001"
	idForeign = "0b5e4c1a-0000-4000-8000-000000000002"
	idNew     = "0b5e4c1a-0000-4000-8000-000000000003"
	idMine    = "0b5e4c1a-0000-4000-8000-000000000004"
	idTheirs  = "0b5e4c1a-0000-4000-8000-000000000005"
	idMissing = "0b5e4c1a-0000-4000-8000-000000000006"
)

func row(t *testing.T, id, user string, at time.Time, res models.DoclingResult) models.ConversionRecord {
	t.Helper()
	b, err := json.Marshal(res)
	require.NoError(t, err)
	return models.ConversionRecord{
		ID:            id,
		UserID:        user,
		FileName:      "file-" + id[len(id)-1:] + ".pdf",
		DoclingResult: datatypes.JSON(b),
		CreatedAt:     at,
	}
}

func TestHistoryListIsScopedAndNewestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &testutil.ConversionRepo{Rows: []models.ConversionRecord{
		row(t, idOld, userA, base, models.DoclingResult{TextContent: "old text"}),
		row(t, idForeign, userB, base.Add(time.Hour), models.DoclingResult{TextContent: "not yours"}),
		row(t, idNew, userA, base.Add(2*time.Hour), models.DoclingResult{}),
	}}
	svc := NewHistoryService(repo)

	entries, err := svc.List(context.Background(), userA, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, idNew, entries[0].ID)
	assert.Equal(t, "No preview", entries[0].TextPreview)
	assert.Equal(t, idOld, entries[1].ID)
	assert.Equal(t, "old text", entries[1].TextPreview)
	assert.Equal(t, "success", entries[1].Status)
}

func TestToHistoryEntryTruncatesPreview(t *testing.T) {
	long := strings.Repeat("ж", 150)
	rec := row(t, "0b5e4c1a-0000-4000-8000-0000000000a1", userA, time.Now(), models.DoclingResult{
		TextContent: long,
		MDContent:   "# md",
		ZipFileURL:  "https://cdn.test/x.zip",
	})

	e := ToHistoryEntry(&rec)
	assert.Equal(t, strings.Repeat("ж", 100), e.TextPreview)
	assert.Equal(t, long, e.FullText)
	assert.Equal(t, "# md", e.MarkdownText)
	assert.Equal(t, "https://cdn.test/x.zip", e.ZipFileURL)
	assert.Equal(t, "file-1.pdf", e.FileName)
}

func TestHistoryDeleteOwnership(t *testing.T) {
	repo := &testutil.ConversionRepo{Rows: []models.ConversionRecord{
		row(t, idMine, userA, time.Now(), models.DoclingResult{}),
		row(t, idTheirs, userB, time.Now(), models.DoclingResult{}),
	}}
	svc := NewHistoryService(repo)
	ctx := context.Background()

	err := svc.Delete(ctx, userA, idTheirs)
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
	assert.Equal(t, 2, repo.Len())

	err = svc.Delete(ctx, userA, idMissing)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	require.NoError(t, svc.Delete(ctx, userA, idMine))
	assert.Equal(t, 1, repo.Len())
	assert.Equal(t, idTheirs, repo.Rows[0].ID)
}

func TestHistoryGet(t *testing.T) {
	repo := &testutil.ConversionRepo{Rows: []models.ConversionRecord{
		row(t, idMine, userA, time.Now(), models.DoclingResult{TextContent: "t"}),
	}}
	svc := NewHistoryService(repo)
	ctx := context.Background()

	rec, err := svc.Get(ctx, userA, idMine)
	require.NoError(t, err)
	assert.Equal(t, "t", rec.Result().TextContent)

	_, err = svc.Get(ctx, userB, idMine)
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))

	_, err = svc.Get(ctx, "", idMine)
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
}

func TestHistoryMalformedIDIsNotFound(t *testing.T) {
	repo := &testutil.ConversionRepo{Rows: []models.ConversionRecord{
		row(t, idMine, userA, time.Now(), models.DoclingResult{}),
	}}
	svc := NewHistoryService(repo)
	ctx := context.Background()

	for _, id := range []string{"not-a-uuid", "1; DROP TABLE user_files", idMine + "x", "urn:uuid:" + idMine} {
		_, err := svc.Get(ctx, userA, id)
		assert.True(t, utils.IsCode(err, utils.CodeNotFound), id)

		err = svc.Delete(ctx, userA, id)
		assert.True(t, utils.IsCode(err, utils.CodeNotFound), id)
	}
	assert.Equal(t, 1, repo.Len())
}

func TestHistoryListReturnsEveryRowWithoutLimit(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &testutil.ConversionRepo{}
	for i := 0; i < 250; i++ {
		id := uuid.NewString()
		repo.Rows = append(repo.Rows, row(t, id, userA, base.Add(time.Duration(i)*time.Minute), models.DoclingResult{}))
	}
	svc := NewHistoryService(repo)

	entries, err := svc.List(context.Background(), userA, 0)
	require.NoError(t, err)
	require.Len(t, entries, 250)
	assert.Equal(t, repo.Rows[249].ID, entries[0].ID)
	assert.Equal(t, repo.Rows[0].ID, entries[249].ID)

	entries, err = svc.List(context.Background(), userA, 120)
	require.NoError(t, err)
	assert.Len(t, entries, 120)
}
