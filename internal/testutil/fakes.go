// Package testutil holds in-memory stand-ins for the stores used in tests.
package testutil

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/utils"
)

type ConversionRepo struct {
	mu        sync.Mutex
	Rows      []models.ConversionRecord
	InsertErr error
	Deletes   int
}

func (r *ConversionRepo) Insert(_ context.Context, rec *models.ConversionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InsertErr != nil {
		return r.InsertErr
	}
	r.Rows = append(r.Rows, *rec)
	return nil
}

func (r *ConversionRepo) ListByUser(_ context.Context, userID string, limit int) ([]models.ConversionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ConversionRecord
	for _, row := range r.Rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ConversionRepo) GetByID(_ context.Context, userID, id string) (*models.ConversionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.Rows {
		if row.ID == id && row.UserID == userID {
			cp := row
			return &cp, nil
		}
	}
	return nil, utils.ErrNotFound
}

func (r *ConversionRepo) DeleteByID(_ context.Context, userID, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.Rows {
		if row.ID == id && row.UserID == userID {
			r.Rows = append(r.Rows[:i], r.Rows[i+1:]...)
			r.Deletes++
			return 1, nil
		}
	}
	return 0, nil
}

func (r *ConversionRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Rows)
}

type ObjectStore struct {
	mu        sync.Mutex
	BaseURL   string
	Objects   map[string][]byte
	Types     map[string]string
	UploadErr error
}

func NewObjectStore(baseURL string) *ObjectStore {
	return &ObjectStore{BaseURL: baseURL, Objects: map[string][]byte{}, Types: map[string]string{}}
}

func (s *ObjectStore) Upload(_ context.Context, objectName, contentType string, r io.Reader) (string, error) {
	if s.UploadErr != nil {
		return "", s.UploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Objects[objectName] = b
	s.Types[objectName] = contentType
	return objectName, nil
}

func (s *ObjectStore) PublicURL(objectPath string) string {
	return s.BaseURL + "/" + objectPath
}

type TaskRepo struct {
	mu     sync.Mutex
	Tasks  map[string]*models.ConversionTask
	GetErr error
}

func NewTaskRepo() *TaskRepo { return &TaskRepo{Tasks: map[string]*models.ConversionTask{}} }

func (r *TaskRepo) Create(_ context.Context, t *models.ConversionTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.Tasks[t.TaskID] = &cp
	return nil
}

func (r *TaskRepo) GetByTaskID(_ context.Context, taskID string) (*models.ConversionTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	t, ok := r.Tasks[taskID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *TaskRepo) SetStatus(_ context.Context, taskID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.Tasks[taskID]; ok {
		t.Status = status
		t.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *TaskRepo) MarkPersisted(_ context.Context, taskID, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.Tasks[taskID]; ok {
		t.RecordID = recordID
	}
	return nil
}

type Cache struct {
	mu   sync.Mutex
	Data map[string][]byte
	Sets int
}

func NewCache() *Cache { return &Cache{Data: map[string][]byte{}} }

func (c *Cache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.Data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Cache) SetJSON(_ context.Context, key string, val any, _ time.Duration) error {
	b, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Data[key] = b
	c.Sets++
	return nil
}

func (c *Cache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.Data, k)
	}
	return nil
}

type Queue struct {
	mu    sync.Mutex
	Items [][2]string // task id, user id
}

func (q *Queue) Enqueue(_ context.Context, taskID, userID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Items = append(q.Items, [2]string{taskID, userID})
	return nil
}
