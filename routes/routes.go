package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"reelfeed/api"
	"reelfeed/config"
	"reelfeed/controllers"
	"reelfeed/database"
	"reelfeed/engine"
	"reelfeed/feed"
	"reelfeed/interactions"
	"reelfeed/models"
	"reelfeed/playback"
)

// screens declares the three feed surfaces. Each gets its own engine over
// its own backend resource; only reels auto-advances when a clip finishes.
var screens = []struct {
	name        string
	resource    string
	autoAdvance bool
}{
	{name: "reels", resource: "reels", autoAdvance: true},
	{name: "explore", resource: "explore", autoAdvance: false},
	{name: "posts", resource: "posts", autoAdvance: false},
}

// BuildEngines constructs one engine per screen against the given client.
func BuildEngines(client *api.Client, factory playback.HandleFactory, onFirstPlay func(feedName string) func(itemID string)) map[string]*engine.Engine {
	engines := make(map[string]*engine.Engine, len(screens))
	for _, screen := range screens {
		resource := screen.resource
		cfg := engine.Config{
			Name: screen.name,
			Source: feed.SourceFunc(func(ctx context.Context, page int) ([]models.FeedItem, bool, error) {
				return client.ListPage(ctx, resource, page)
			}),
			Backend: interactions.BackendFunc(func(ctx context.Context, entityID string, kind models.InteractionKind, enabled bool) error {
				return client.SetInteraction(ctx, resource, entityID, kind, enabled)
			}),
			Factory:         factory,
			AutoAdvance:     screen.autoAdvance,
			DoubleTapWindow: config.Engine.DoubleTapWindow,
		}
		if onFirstPlay != nil {
			cfg.OnFirstPlay = onFirstPlay(screen.name)
		}
		engines[screen.name] = engine.New(cfg)
	}
	return engines
}

func SetupRoutes(r *gin.Engine) map[string]*engine.Engine {
	db := database.GetDB()

	client := api.NewClient(config.Engine.BackendBaseURL, &database.TokenStore{DB: db}, config.HTTP.BackendTimeout)
	factory := playback.NewSimFactory(config.Engine.SimulatedDuration, config.Engine.StatusInterval)
	engines := BuildEngines(client, factory, func(feedName string) func(itemID string) {
		return controllers.RecordView(db, feedName)
	})

	feedController := controllers.NewFeedController(db, engines)
	settingsController := controllers.NewSettingsController(db)
	historyController := controllers.NewHistoryController(db)

	feedController.RestoreSnapshots()

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(503, gin.H{
				"status":    "unhealthy",
				"error":     "database connection error",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := sqlDB.PingContext(pingCtx); err != nil {
			c.JSON(503, gin.H{
				"status":    "unhealthy",
				"error":     "database ping failed",
				"timestamp": time.Now().Unix(),
			})
			return
		}

		c.JSON(200, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
	})

	apiGroup := r.Group("/api")
	{
		feeds := apiGroup.Group("/feeds/:feed")
		{
			feeds.GET("/state", feedController.GetState)
			feeds.POST("/refresh", feedController.Refresh)
			feeds.POST("/load-more", feedController.LoadMore)
			feeds.POST("/viewable", feedController.Viewable)
			feeds.POST("/offscreen", feedController.Offscreen)
			feeds.POST("/press", feedController.Press)
			feeds.POST("/toggle", feedController.Toggle)
			feeds.POST("/focus", feedController.Focus)
			feeds.POST("/blur", feedController.Blur)
			feeds.POST("/mute", feedController.Mute)
		}

		apiGroup.GET("/settings", settingsController.GetSettings)
		apiGroup.PUT("/settings/token", settingsController.SetToken)
		apiGroup.DELETE("/settings/token", settingsController.ClearToken)

		apiGroup.GET("/history/recent", historyController.GetRecent)
		apiGroup.GET("/history/most-viewed", historyController.GetMostViewed)
	}

	return engines
}
