package config

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	maxPagesLimit = 100
	topKLimit     = 20
)

// SettingsAPI serves the runtime settings endpoints.
type SettingsAPI struct {
	store *SettingsStore
}

// NewSettingsAPI creates a new settings API.
func NewSettingsAPI(store *SettingsStore) *SettingsAPI {
	return &SettingsAPI{
		store: store,
	}
}

// RegisterRoutes adds GET and PUT /config to group.
func (c *SettingsAPI) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/config", c.HandleGetSettings)
	group.PUT("/config", c.HandleUpdateSettings)
}

// errorResponse creates a standardized error response.
func errorResponse(code, message string) gin.H {
	return gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

// HandleGetSettings handles GET /api/v1/config.
func (c *SettingsAPI) HandleGetSettings(ctx *gin.Context) {
	settings, err := c.store.GetSettings()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to retrieve settings"))
		return
	}

	ctx.JSON(http.StatusOK, settings)
}

// HandleUpdateSettings handles PUT /api/v1/config. Fields left out of the
// body keep their current value.
func (c *SettingsAPI) HandleUpdateSettings(ctx *gin.Context) {
	var update SettingsUpdate
	if err := ctx.ShouldBindJSON(&update); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("bad_request", err.Error()))
		return
	}

	if err := validateSettings(update); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("validation_error", err.Error()))
		return
	}

	if err := c.store.UpdateSettings(update); err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to update settings"))
		return
	}

	settings, err := c.store.GetSettings()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal_error", "Failed to retrieve settings"))
		return
	}
	ctx.JSON(http.StatusOK, settings)
}

func validateSettings(update SettingsUpdate) error {
	if update.DefaultMaxPages != nil {
		if n := *update.DefaultMaxPages; n < 1 || n > maxPagesLimit {
			return fmt.Errorf("invalid default_max_pages: must be between 1 and %d", maxPagesLimit)
		}
	}
	if update.TopK != nil {
		if n := *update.TopK; n < 1 || n > topKLimit {
			return fmt.Errorf("invalid top_k: must be between 1 and %d", topKLimit)
		}
	}
	return nil
}
