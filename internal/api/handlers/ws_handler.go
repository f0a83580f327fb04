package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/services"
	"github.com/yoockh/doclingate/internal/utils"
)

type WSHandler struct {
	tasks    services.TaskService
	redis    *redis.Client
	upgrader websocket.Upgrader
}

func NewWSHandler(tasks services.TaskService, rdb *redis.Client) *WSHandler {
	return &WSHandler{
		tasks: tasks,
		redis: rdb,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

// TaskWS streams TaskEvents for one task until a terminal event or the
// client goes away.
func (h *WSHandler) TaskWS(c *gin.Context) {
	const op = "WSHandler.TaskWS"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	if h.redis == nil {
		writeError(c, utils.E(utils.CodeUnavailable, op, "Task updates are not enabled", nil))
		return
	}

	taskID := c.Param("task_id")
	if taskID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "Missing task_id", nil))
		return
	}
	if _, err := h.tasks.Authorize(c.Request.Context(), userID, taskID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// subscribe before the snapshot so no change slips in between
	pubsub := h.redis.Subscribe(ctx, models.TaskStatusChannel(taskID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = wc.writeJSON(models.TaskEvent{Type: "error", TaskID: taskID, Message: "subscribe failed"})
		return
	}

	raw, err := h.tasks.Poll(ctx, userID, taskID)
	if err != nil {
		_ = wc.writeJSON(models.TaskEvent{Type: "error", TaskID: taskID, Message: "Failed to poll status"})
	} else {
		ev := services.StatusEvent(taskID, raw)
		if err := wc.writeJSON(ev); err != nil || ev.Terminal {
			return
		}
	}

	// reader only notices the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			var ev models.TaskEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				continue
			}
			if err := wc.writeJSON(ev); err != nil || ev.Terminal {
				return
			}
		}
	}
}
