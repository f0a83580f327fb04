package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/doclingate/internal/cache"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/providers/docling"
	mongorepo "github.com/yoockh/doclingate/internal/repositories/mongo"
	"github.com/yoockh/doclingate/internal/utils"
)

// TaskQueue hands started tasks to the background status watcher.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskID, userID string) error
}

type TaskService interface {
	StartAsync(ctx context.Context, userID string, req docling.SourceRequest) (json.RawMessage, error)
	Poll(ctx context.Context, userID, taskID string) (json.RawMessage, error)
	Result(ctx context.Context, userID, taskID string) (*models.ConversionRecord, error)
	// Authorize returns the tracked task, nil when untracked, or a FORBIDDEN
	// error when the task belongs to another user. A failed lookup is
	// UNAVAILABLE, never untracked.
	Authorize(ctx context.Context, userID, taskID string) (*models.ConversionTask, error)
}

// TaskDeps wires a TaskService. Tasks, Cache and Queue are optional.
type TaskDeps struct {
	Docling     docling.Provider
	Conversions ConversionService
	Tasks       mongorepo.TaskRepository
	Cache       cache.Cache
	Queue       TaskQueue
	StatusTTL   time.Duration
	TaskTTL     time.Duration
	Logger      *logrus.Logger
}

type taskService struct {
	TaskDeps
}

func NewTaskService(d TaskDeps) TaskService {
	if d.TaskTTL <= 0 {
		d.TaskTTL = 24 * time.Hour
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &taskService{TaskDeps: d}
}

func (s *taskService) StartAsync(ctx context.Context, userID string, req docling.SourceRequest) (json.RawMessage, error) {
	const op = "TaskService.StartAsync"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if req.Empty() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Provide http_sources or file_sources", nil)
	}

	raw, err := s.Docling.ConvertSourceAsync(ctx, req)
	if err != nil {
		return nil, upstreamErr(op, "Failed to start async task", err)
	}

	ts, err := docling.ParseTask(raw)
	if err != nil || ts.TaskID == "" {
		s.Logger.WithError(err).Warn("async task handle without task_id; not tracking")
		return raw, nil
	}

	log := s.Logger.WithFields(logrus.Fields{"task_id": ts.TaskID, "user_id": userID})

	if s.Tasks != nil {
		now := time.Now().UTC()
		err := s.Tasks.Create(ctx, &models.ConversionTask{
			TaskID:     ts.TaskID,
			UserID:     userID,
			SourceName: req.DisplayName(),
			Status:     ts.TaskStatus,
			CreatedAt:  now,
			UpdatedAt:  now,
			ExpiresAt:  now.Add(s.TaskTTL),
		})
		if err != nil {
			log.WithError(err).Warn("failed to record async task")
		}
	}
	if s.Queue != nil {
		if err := s.Queue.Enqueue(ctx, ts.TaskID, userID); err != nil {
			log.WithError(err).Warn("failed to enqueue task watch")
		}
	}
	return raw, nil
}

func (s *taskService) Poll(ctx context.Context, userID, taskID string) (json.RawMessage, error) {
	const op = "TaskService.Poll"

	if taskID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing task_id", nil)
	}
	tracked, err := s.Authorize(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	key := cache.TaskStatusKey(taskID)
	if s.Cache != nil && s.StatusTTL > 0 {
		var cached json.RawMessage
		if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	raw, err := s.Docling.PollStatus(ctx, taskID)
	if err != nil {
		return nil, upstreamErr(op, "Failed to poll status", err)
	}

	if s.Cache != nil && s.StatusTTL > 0 {
		if err := s.Cache.SetJSON(ctx, key, raw, s.StatusTTL); err != nil {
			s.Logger.WithError(err).WithField("task_id", taskID).Debug("status cache write failed")
		}
	}
	if tracked != nil && s.Tasks != nil {
		if ts, err := docling.ParseTask(raw); err == nil && ts.TaskStatus != "" && ts.TaskStatus != tracked.Status {
			_ = s.Tasks.SetStatus(ctx, taskID, ts.TaskStatus)
		}
	}
	return raw, nil
}

func (s *taskService) Result(ctx context.Context, userID, taskID string) (*models.ConversionRecord, error) {
	const op = "TaskService.Result"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if taskID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "Missing task_id", nil)
	}
	tracked, err := s.Authorize(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	name := "remote-source"
	if tracked != nil && tracked.SourceName != "" {
		name = tracked.SourceName
	}

	rec, err := s.Conversions.PersistTaskResult(ctx, userID, taskID, name)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		_ = s.Cache.Del(ctx, cache.TaskStatusKey(taskID))
	}
	if tracked != nil && s.Tasks != nil {
		if err := s.Tasks.MarkPersisted(ctx, taskID, rec.ID); err != nil {
			s.Logger.WithError(err).WithField("task_id", taskID).Warn("failed to link task to history row")
		}
	}
	return rec, nil
}

func (s *taskService) Authorize(ctx context.Context, userID, taskID string) (*models.ConversionTask, error) {
	const op = "TaskService.Authorize"

	if userID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "Unauthorized", nil)
	}
	if s.Tasks == nil {
		return nil, nil
	}

	t, err := s.Tasks.GetByTaskID(ctx, taskID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "Task tracking unavailable", err)
	}
	if t.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "Forbidden", nil)
	}
	return t, nil
}

// StatusEvent wraps an upstream poll answer for pubsub and websocket clients.
func StatusEvent(taskID string, raw json.RawMessage) models.TaskEvent {
	ev := models.TaskEvent{Type: "status", TaskID: taskID, Task: raw}
	if ts, err := docling.ParseTask(raw); err == nil {
		ev.TaskStatus = ts.TaskStatus
		ev.Terminal = docling.IsTerminal(ts.TaskStatus)
	}
	return ev
}
