package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelfeed/models"
	"reelfeed/utils"
)

// HistoryController serves the viewer's local watch history.
type HistoryController struct {
	db *gorm.DB
}

func NewHistoryController(db *gorm.DB) *HistoryController {
	return &HistoryController{db: db}
}

func (c *HistoryController) GetRecent(ctx *gin.Context) {
	var history []models.WatchHistory
	result := c.db.Order("last_viewed_at DESC").Limit(10).Find(&history)
	if result.Error != nil {
		utils.InternalError(ctx, "Failed to fetch history")
		return
	}
	ctx.JSON(200, history)
}

func (c *HistoryController) GetMostViewed(ctx *gin.Context) {
	var history []models.WatchHistory
	result := c.db.Order("view_count DESC, last_viewed_at DESC").Limit(10).Find(&history)
	if result.Error != nil {
		utils.InternalError(ctx, "Failed to fetch history")
		return
	}
	ctx.JSON(200, history)
}
