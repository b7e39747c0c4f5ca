package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/filetool-go/tool"
	"github.com/moyoez/filetool-go/types"
)

type settingsResponse struct {
	types.Settings
	UsageDays int `json:"usageDays"`
}

func newSettingsResponse(cfg types.Settings) settingsResponse {
	return settingsResponse{Settings: cfg, UsageDays: tool.UsageDays(cfg)}
}

// SettingsGet returns the settings document.
// GET /api/self/v1/settings
func SettingsGet(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(newSettingsResponse(tool.GetSettings())))
}

// SettingsPut accepts a partial settings document and persists it.
// PUT /api/self/v1/settings
func SettingsPut(c *gin.Context) {
	var body types.SettingsPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}

	cfg := tool.GetSettings()
	if body.CompressionQuality != nil {
		cfg.CompressionQuality = *body.CompressionQuality
	}
	if body.AutoSave != nil {
		cfg.AutoSave = *body.AutoSave
	}
	if body.VibrationEnabled != nil {
		cfg.VibrationEnabled = *body.VibrationEnabled
	}
	if body.APIBaseURL != nil {
		cfg.APIBaseURL = *body.APIBaseURL
	}
	if body.ShowStats != nil {
		cfg.ShowStats = *body.ShowStats
	}

	updated, err := tool.UpdateSettingsAndPersist(cfg)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(newSettingsResponse(updated)))
}

type apiBaseURLRequest struct {
	APIBaseURL string `json:"apiBaseUrl"`
}

// SettingsPutAPIBaseURL switches the processing service.
// PUT /api/self/v1/settings/api-base-url
func SettingsPutAPIBaseURL(c *gin.Context) {
	var body apiBaseURLRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	updated, err := tool.SetAPIBaseURL(body.APIBaseURL)
	if err != nil {
		abortWithError(c, err)
		return
	}
	tool.DefaultLogger.Infof("API base url changed to %s", updated.APIBaseURL)
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(newSettingsResponse(updated)))
}
