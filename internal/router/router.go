package router

import (
	"net/http"

	"github.com/bananalabs-oss/stocking/internal/device"
	"github.com/bananalabs-oss/stocking/internal/metrics"
	"github.com/bananalabs-oss/stocking/internal/rooms"
	potassium "github.com/bananalabs-oss/potassium/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	ServiceToken string
	CORSOrigins  []string
}

func Setup(h *rooms.Handler, opts Options) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", device.Header},
	}))
	r.Use(metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "stocking"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/device", h.NewDevice)

	// Browsers cannot set headers on websocket upgrades or <img> loads.
	r.GET("/rooms/:code/events", h.Events)
	r.GET("/rooms/:code/qr.png", h.QRCode)

	// Device-facing endpoints
	api := r.Group("")
	api.Use(rooms.RequireDevice())
	{
		api.GET("/session", h.GetSession)

		api.POST("/rooms", h.CreateRoom)
		api.GET("/rooms/:code", h.GetRoom)
		api.GET("/rooms/:code/phase", h.GetPhase)
		api.GET("/rooms/:code/participants", h.ListParticipants)
		api.POST("/rooms/:code/participants", h.AddParticipant)
		api.GET("/rooms/:code/exclusions", h.ListExclusions)
		api.POST("/rooms/:code/exclusions", h.AddExclusion)
		api.POST("/rooms/:code/draw", h.StartDraw)
		api.POST("/rooms/:code/reset", h.Reset)
		api.GET("/rooms/:code/receiver", h.GetReceiver)

		api.POST("/participants/:id/claim", h.ClaimParticipant)
		api.POST("/participants/:id/release", h.ReleaseParticipant)
		api.DELETE("/participants/:id", h.RemoveParticipant)

		api.DELETE("/exclusions/:id", h.RemoveExclusion)
	}

	// Internal endpoints (service token auth via Potassium)
	internal := r.Group("/internal/rooms")
	internal.Use(potassium.ServiceAuth(opts.ServiceToken))
	{
		internal.GET("/:code", h.GetRoomInternal)
	}

	return r
}
