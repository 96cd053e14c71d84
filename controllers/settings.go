package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelfeed/database"
	"reelfeed/models"
	"reelfeed/utils"
)

// SettingsController manages the stored backend credentials.
type SettingsController struct {
	db     *gorm.DB
	tokens *database.TokenStore
}

func NewSettingsController(db *gorm.DB) *SettingsController {
	return &SettingsController{db: db, tokens: &database.TokenStore{DB: db}}
}

func (c *SettingsController) GetSettings(ctx *gin.Context) {
	var cfg models.AppConfig
	if err := c.db.First(&cfg).Error; err != nil {
		utils.InternalError(ctx, "Failed to load settings")
		return
	}

	ctx.JSON(200, gin.H{
		"is_connected":     cfg.IsConnected,
		"account_handle":   cfg.AccountHandle,
		"token_preview":    utils.MaskValue(cfg.AccessToken),
		"token_updated_at": cfg.TokenUpdatedAt,
	})
}

func (c *SettingsController) SetToken(ctx *gin.Context) {
	var req struct {
		Token  string `json:"token" binding:"required"`
		Handle string `json:"handle"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, err.Error())
		return
	}

	if err := c.tokens.SetToken(req.Token, req.Handle); err != nil {
		utils.InternalError(ctx, "Failed to save token")
		return
	}
	ctx.JSON(200, gin.H{"status": "Token saved", "is_connected": true})
}

func (c *SettingsController) ClearToken(ctx *gin.Context) {
	if err := c.tokens.ClearToken(); err != nil {
		utils.InternalError(ctx, "Failed to clear token")
		return
	}
	ctx.JSON(200, gin.H{"status": "Logged out", "is_connected": false})
}
