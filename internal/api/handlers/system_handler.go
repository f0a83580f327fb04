package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/doclingate/internal/models"
	"github.com/yoockh/doclingate/internal/utils"
)

// Features reports which optional backends this instance runs with.
type Features struct {
	StorageDriver string   `json:"storage_driver"`
	TaskTracking  bool     `json:"task_tracking"`
	StatusCache   bool     `json:"status_cache"`
	TaskWatcher   bool     `json:"task_watcher"`
	Presets       []string `json:"presets"`
}

type SystemHandler struct {
	features Features
}

func NewSystemHandler(f Features) *SystemHandler { return &SystemHandler{features: f} }

func (h *SystemHandler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func (h *SystemHandler) Features(c *gin.Context) {
	writeData(c, h.features)
}

// Me echoes the identity taken from the access token.
func (h *SystemHandler) Me(c *gin.Context) {
	u, ok := c.Get("user")
	user, _ := u.(models.User)
	if !ok || user.ID == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, "SystemHandler.Me", "Unauthorized", nil))
		return
	}
	writeData(c, user)
}
