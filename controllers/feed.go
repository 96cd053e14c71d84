package controllers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"reelfeed/engine"
	"reelfeed/models"
	"reelfeed/utils"
)

// FeedController exposes the per-screen feed engines to the UI shells. The
// shells post semantic events (viewable, press, focus changes, toggles) and
// poll observable state.
type FeedController struct {
	db      *gorm.DB
	engines map[string]*engine.Engine
}

func NewFeedController(db *gorm.DB, engines map[string]*engine.Engine) *FeedController {
	return &FeedController{db: db, engines: engines}
}

func (c *FeedController) engine(ctx *gin.Context) (*engine.Engine, bool) {
	name := ctx.Param("feed")
	eng, ok := c.engines[name]
	if !ok {
		utils.NotFound(ctx, "Unknown feed: "+name)
		return nil, false
	}
	return eng, true
}

func (c *FeedController) GetState(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}
	ctx.JSON(200, eng.State())
}

func (c *FeedController) Refresh(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}

	eng.Refresh(ctx.Request.Context())

	state := eng.State()
	if state.Page.ErrorMessage == "" {
		c.saveSnapshot(eng.Name(), state.Page.Items)
	}
	ctx.JSON(200, state)
}

func (c *FeedController) LoadMore(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}
	eng.LoadMore(ctx.Request.Context())
	ctx.JSON(200, eng.State())
}

func (c *FeedController) Viewable(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, err.Error())
		return
	}

	if !eng.Viewable(req.ItemID) {
		utils.NotFound(ctx, "Item not found in feed")
		return
	}
	ctx.JSON(200, eng.State().Playback)
}

func (c *FeedController) Offscreen(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, err.Error())
		return
	}

	eng.Offscreen(req.ItemID)
	ctx.JSON(200, gin.H{"status": "Handle released"})
}

func (c *FeedController) Press(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, err.Error())
		return
	}

	// Presses are timed on arrival so both taps of a pair share one clock.
	result, found := eng.Press(req.ItemID, time.Now())
	if !found {
		utils.NotFound(ctx, "Item not found in feed")
		return
	}
	ctx.JSON(200, gin.H{"gesture": result.String()})
}

func (c *FeedController) Toggle(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}

	var req struct {
		ItemID string `json:"item_id" binding:"required"`
		Kind   string `json:"kind" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(ctx, err.Error())
		return
	}

	kind := models.InteractionKind(req.Kind)
	if !models.ValidKind(kind) {
		utils.BadRequest(ctx, "Unknown interaction kind: "+req.Kind)
		return
	}

	if !eng.ToggleInteraction(req.ItemID, kind) {
		utils.NotFound(ctx, "Item not found in feed")
		return
	}
	ctx.JSON(200, gin.H{"status": "Toggle queued"})
}

func (c *FeedController) Focus(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}
	eng.Focus()
	ctx.JSON(200, gin.H{"status": "Focused"})
}

func (c *FeedController) Blur(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}
	eng.Blur()
	ctx.JSON(200, gin.H{"status": "Blurred, playback paused"})
}

func (c *FeedController) Mute(ctx *gin.Context) {
	eng, ok := c.engine(ctx)
	if !ok {
		return
	}
	ctx.JSON(200, gin.H{"is_muted": eng.ToggleMute()})
}

func (c *FeedController) saveSnapshot(feedName string, items []models.FeedItem) {
	payload, err := json.Marshal(items)
	if err != nil {
		return
	}

	var snap models.FeedSnapshot
	c.db.Where("feed = ?", feedName).FirstOrCreate(&snap, models.FeedSnapshot{Feed: feedName})
	snap.Payload = string(payload)
	snap.FetchedAt = time.Now()
	if err := c.db.Save(&snap).Error; err != nil {
		log.Printf("Warning: Failed to save %s snapshot: %v", feedName, err)
	}
}

// RestoreSnapshots primes every engine from its cached first page, so the
// screens have content before the first refresh completes.
func (c *FeedController) RestoreSnapshots() {
	for name, eng := range c.engines {
		var snap models.FeedSnapshot
		if err := c.db.Where("feed = ?", name).First(&snap).Error; err != nil {
			continue
		}
		var items []models.FeedItem
		if err := json.Unmarshal([]byte(snap.Payload), &items); err != nil {
			log.Printf("Warning: Discarding corrupt %s snapshot: %v", name, err)
			continue
		}
		if len(items) > 0 {
			eng.Prime(items)
		}
	}
}

// RecordView returns the first-play hook for one feed: it bumps the item's
// watch history row.
func RecordView(db *gorm.DB, feedName string) func(itemID string) {
	return func(itemID string) {
		var history models.WatchHistory
		db.Where("item_id = ?", itemID).FirstOrCreate(&history, models.WatchHistory{
			ItemID: itemID,
			Feed:   feedName,
		})
		history.ViewCount++
		history.LastViewedAt = time.Now()
		if err := db.Save(&history).Error; err != nil {
			log.Printf("Warning: Failed to update watch history for %s: %v", itemID, err)
		}
	}
}
