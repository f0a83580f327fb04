package workers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/providers/docling"
	mongorepo "github.com/yoockh/doclingate/internal/repositories/mongo"
	"github.com/yoockh/doclingate/internal/services"
)

const (
	TaskStream = "docling:tasks"
	TaskGroup  = "task-watchers"
)

type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, ev models.TaskEvent) error
}

// TaskWatcher follows one upstream task until it settles and reports every
// status change. It never writes history rows.
type TaskWatcher struct {
	Docling  docling.Provider
	Tasks    mongorepo.TaskRepository // optional
	Events   EventPublisher
	Interval time.Duration
	MaxWait  time.Duration
	Logger   *logrus.Logger
}

func (w *TaskWatcher) Watch(ctx context.Context, taskID string) error {
	if w.Docling == nil || w.Events == nil {
		return errors.New("TaskWatcher missing dependency: Docling/Events must be set")
	}
	interval := w.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	maxWait := w.MaxWait
	if maxWait <= 0 {
		maxWait = 30 * time.Minute
	}
	logger := w.Logger
	if logger == nil {
		logger = logrus.New()
	}
	log := logger.WithField("task_id", taskID)

	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ""
	for {
		raw, err := w.Docling.PollStatus(ctx, taskID)
		switch {
		case err == nil:
			ev := services.StatusEvent(taskID, raw)
			if ev.TaskStatus != last {
				last = ev.TaskStatus
				w.publish(ctx, log, ev)
				if w.Tasks != nil && ev.TaskStatus != "" {
					if err := w.Tasks.SetStatus(ctx, taskID, ev.TaskStatus); err != nil {
						log.WithError(err).Warn("failed to update tracked task")
					}
				}
			}
			if ev.Terminal {
				return nil
			}
		case ctx.Err() != nil:
			// fall through to the deadline check below
		case isGone(err):
			w.publish(ctx, log, models.TaskEvent{Type: "error", TaskID: taskID, Terminal: true, Message: "task not found upstream"})
			return err
		default:
			log.WithError(err).Warn("status poll failed")
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				// the request context is gone; publish on a fresh one
				pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
				w.publish(pctx, log, models.TaskEvent{Type: "error", TaskID: taskID, TaskStatus: last, Terminal: true, Message: "stopped watching task"})
				pcancel()
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *TaskWatcher) publish(ctx context.Context, log *logrus.Entry, ev models.TaskEvent) {
	if err := w.Events.PublishTaskEvent(ctx, ev); err != nil {
		log.WithError(err).Warn("failed to publish task event")
	}
}

func isGone(err error) bool {
	var ue *docling.UpstreamError
	return errors.As(err, &ue) && ue.Status == http.StatusNotFound
}

// RedisEvents publishes task events on their pubsub channel.
type RedisEvents struct {
	Redis *redis.Client
}

func (r RedisEvents) PublishTaskEvent(ctx context.Context, ev models.TaskEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.Redis.Publish(ctx, models.TaskStatusChannel(ev.TaskID), b).Err()
}

// RedisTaskQueue appends started tasks to the watcher stream.
type RedisTaskQueue struct {
	Redis  *redis.Client
	Stream string
}

func (q RedisTaskQueue) Enqueue(ctx context.Context, taskID, userID string) error {
	stream := q.Stream
	if stream == "" {
		stream = TaskStream
	}
	return q.Redis.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{
			"task_id": taskID,
			"user_id": userID,
			"ts_unix": strconv.FormatInt(time.Now().UTC().Unix(), 10),
		},
	}).Err()
}

// TaskWatcherPool consumes TaskStream with a consumer group and runs one
// TaskWatcher per message.
type TaskWatcherPool struct {
	Redis      *redis.Client
	Watcher    *TaskWatcher
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

func (p *TaskWatcherPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Watcher == nil {
		return errors.New("TaskWatcherPool missing dependency: Redis/Watcher must be set")
	}
	if p.Stream == "" {
		p.Stream = TaskStream
	}
	if p.Group == "" {
		p.Group = TaskGroup
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "w"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "$").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TaskWatcherPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// one task per read: a watch can run for minutes
		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *TaskWatcherPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	taskID := streamValue(msg, "task_id")
	if taskID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"task_id":  taskID,
		"user_id":  streamValue(msg, "user_id"),
	})
	log.Debug("watching task")

	if err := p.Watcher.Watch(ctx, taskID); err != nil && ctx.Err() == nil {
		log.WithError(err).Info("task watch ended")
	}
}

func streamValue(msg redis.XMessage, key string) string {
	s, _ := msg.Values[key].(string)
	return s
}
