// Package api exposes the workspace over a JSON HTTP API. The router is
// mounted under /api/ next to the web UI.
package api

import (
	"database/sql"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/automation"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/config"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/logging"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

// slowRequest is the latency above which a request is logged as a warning.
const slowRequest = 200 * time.Millisecond

// Handler serves the API routes.
type Handler struct {
	db     *sql.DB
	st     *store.Store
	cfg    *config.Config
	runner *automation.Runner
}

var log = logging.NewLogger("api")

// NewHandler returns a Handler. Reminder runs triggered through the API are
// recorded in database alongside scheduled ones.
func NewHandler(database *sql.DB, st *store.Store, cfg *config.Config) *Handler {
	return &Handler{
		db:     database,
		st:     st,
		cfg:    cfg,
		runner: automation.NewRunner(database, st),
	}
}

// NewRouter builds the gin engine with every route under /api.
func NewRouter(database *sql.DB, st *store.Store, cfg *config.Config) *gin.Engine {
	h := NewHandler(database, st, cfg)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.GET("/snapshot", h.GetSnapshot)
		api.GET("/slots/:slot", h.GetSlot)
		api.PUT("/slots/:slot", h.PutSlot)

		api.GET("/workspace", h.GetWorkspace)
		api.PATCH("/workspace", h.UpdateWorkspace)
		api.POST("/onboard", h.Onboard)
		api.PUT("/role", h.SetRole)
		api.GET("/dashboard", h.GetDashboard)

		api.GET("/services", h.GetServices)
		api.GET("/availability", h.GetAvailability)

		bookings := api.Group("/bookings")
		{
			bookings.GET("", h.ListBookings)
			bookings.POST("/:id/status", h.SetBookingStatus)
		}

		inbox := api.Group("/inbox")
		{
			inbox.GET("", h.GetInbox)
			inbox.GET("/:contact", h.GetConversation)
			inbox.POST("/:contact/reply", h.Reply)
		}

		forms := api.Group("/forms")
		{
			forms.GET("", h.ListForms)
			forms.POST("/:id/complete", h.CompleteForm)
		}

		inventory := api.Group("/inventory")
		{
			inventory.GET("", h.ListInventory)
			inventory.POST("", h.AddInventoryItem)
			inventory.POST("/:id/adjust", h.AdjustInventory)
		}

		public := api.Group("/public")
		{
			public.POST("/contact", h.SubmitContact)
			public.POST("/booking", h.SubmitBooking)
		}

		automations := api.Group("/automation")
		{
			automations.POST("/remind", h.Remind)
			automations.GET("/runs", h.History)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, errors.NewNotFound("route", c.Request.URL.Path))
	})

	return r
}

// requestLogger logs every request with its status and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)

		entry := log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": latency.String(),
		})
		if latency > slowRequest {
			entry.Warn("slow request")
			return
		}
		entry.Debug("request")
	}
}

// respondError writes {"error": {...}} with the status of the ops error.
// Internal details are never exposed.
func respondError(c *gin.Context, err error) {
	var opsErr *errors.OpsError
	if !stderrors.As(err, &opsErr) {
		opsErr = errors.NewInternal(err)
	}
	if opsErr.Code == errors.ErrInternal {
		log.WithError(err).Error("request failed")
	}

	status := opsErr.Status
	if status == 499 {
		status = http.StatusRequestTimeout
	}

	body := gin.H{
		"code":    opsErr.Code,
		"message": opsErr.Message,
		"status":  status,
	}
	if opsErr.Code != errors.ErrInternal && opsErr.Details != nil {
		body["details"] = opsErr.Details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// bindJSON decodes the request body into v, answering 400 on failure.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request body: "+err.Error()))
		return false
	}
	return true
}

func queryBool(c *gin.Context, name string) bool {
	s := c.Query(name)
	return s == "true" || s == "1"
}

func queryInt(c *gin.Context, name string) (int, error) {
	s := c.Query(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.NewInvalidRequest(name + " must be a non-negative integer")
	}
	return n, nil
}
