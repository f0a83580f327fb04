package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const TaskCollection = "conversion_tasks"

type TaskRepository interface {
	Create(ctx context.Context, t *models.ConversionTask) error
	GetByTaskID(ctx context.Context, taskID string) (*models.ConversionTask, error)
	SetStatus(ctx context.Context, taskID, status string) error
	MarkPersisted(ctx context.Context, taskID, recordID string) error
}

type taskRepo struct {
	col *mongo.Collection
}

func NewTaskRepo(db *mongo.Database) TaskRepository {
	return &taskRepo{col: db.Collection(TaskCollection)}
}

func (r *taskRepo) Create(ctx context.Context, t *models.ConversionTask) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	_, err := r.col.InsertOne(ctx, t)
	return err
}

func (r *taskRepo) GetByTaskID(ctx context.Context, taskID string) (*models.ConversionTask, error) {
	var t models.ConversionTask
	err := r.col.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &t, err
}

func (r *taskRepo) SetStatus(ctx context.Context, taskID, status string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"task_id": taskID},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}

func (r *taskRepo) MarkPersisted(ctx context.Context, taskID, recordID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"task_id": taskID},
		bson.M{"$set": bson.M{
			"record_id":  recordID,
			"updated_at": time.Now().UTC(),
		}},
	)
	return err
}
