package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConversionTask tracks an async upstream task started through the gateway.
type ConversionTask struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TaskID     string             `bson:"task_id" json:"task_id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	SourceName string             `bson:"source_name" json:"source_name"`
	Status     string             `bson:"status" json:"status"` // pending|started|success|failure|...
	RecordID   string             `bson:"record_id,omitempty" json:"record_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // TTL index
}

// TaskEvent is what the watcher publishes and the websocket forwards.
type TaskEvent struct {
	Type       string          `json:"type"` // "status" | "error"
	TaskID     string          `json:"task_id"`
	TaskStatus string          `json:"task_status,omitempty"`
	Terminal   bool            `json:"terminal"`
	Message    string          `json:"message,omitempty"`
	Task       json.RawMessage `json:"task,omitempty"`
}

// TaskStatusChannel is the pubsub channel carrying TaskEvents for one task.
func TaskStatusChannel(taskID string) string { return "task:" + taskID + ":status" }
