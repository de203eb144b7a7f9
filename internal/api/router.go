package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"duendefinder/internal/events"
	"duendefinder/internal/logging"
	"duendefinder/internal/workflow"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	defaultLogLimit  = 200
)

// StatusProvider reports workflow state for the dashboard.
type StatusProvider interface {
	Status(ctx context.Context) workflow.StatusSummary
}

// Options configures the router.
type Options struct {
	Events   EventReader
	Workflow StatusProvider
	Logs     *logging.StreamHub
	Token    string
	Logger   *slog.Logger
	Now      func() time.Time
}

type handlers struct {
	events   *EventService
	workflow StatusProvider
	logs     *logging.StreamHub
	logger   *slog.Logger
	now      func() time.Time
}

// NewRouter builds the gin engine serving the status API.
func NewRouter(opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &handlers{
		events:   NewEventService(opts.Events),
		workflow: opts.Workflow,
		logs:     opts.Logs,
		logger:   logging.NewComponentLogger(logger, "api-server"),
		now:      opts.Now,
	}
	if h.now == nil {
		h.now = time.Now
	}

	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())

	// Health stays open for liveness checks; everything else needs the token.
	router.GET("/api/health", h.health)
	group := router.Group("/api", bearerAuth(strings.TrimSpace(opts.Token)))
	group.GET("/events", h.listEvents)
	group.GET("/events/:id", h.getEvent)
	group.GET("/dashboard", h.dashboard)
	group.GET("/logs", h.tailLogs)
	return router
}

func (h *handlers) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("api request",
			logging.String("method", c.Request.Method),
			logging.String("path", c.FullPath()),
			logging.Int("status", c.Writer.Status()),
			logging.Duration("duration", time.Since(start)),
		)
	}
}

func (h *handlers) health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Store: "ok"}
	if err := h.events.Ping(c.Request.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = "unreachable"
		resp.Detail = err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) listEvents(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"), defaultListLimit, maxListLimit)
	if err != nil {
		h.writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	var statuses []events.Status
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			status, ok := events.ParseStatus(part)
			if !ok {
				h.writeError(c, http.StatusBadRequest, "invalid_status", "unknown status "+strconv.Quote(part))
				return
			}
			statuses = append(statuses, status)
		}
	}

	items, err := h.events.List(c.Request.Context(), limit, statuses...)
	if err != nil {
		h.internalError(c, "list events", err)
		return
	}
	c.JSON(http.StatusOK, EventListResponse{Events: items, Count: len(items)})
}

func (h *handlers) getEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	item, err := h.events.Describe(c.Request.Context(), id)
	if err != nil {
		h.internalError(c, "describe event", err)
		return
	}
	if item == nil {
		h.writeError(c, http.StatusNotFound, "not_found", "event not found")
		return
	}
	c.JSON(http.StatusOK, EventResponse{Event: *item})
}

func (h *handlers) dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	counts, total, err := h.events.Counts(ctx)
	if err != nil {
		h.internalError(c, "event counts", err)
		return
	}
	resp := DashboardResponse{
		GeneratedAt: FormatTime(h.now()),
		Counts:      counts,
		Total:       total,
	}
	if h.workflow != nil {
		wf := FromStatusSummary(h.workflow.Status(ctx))
		resp.Workflow = &wf
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handlers) tailLogs(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusOK, LogStreamResponse{Events: []LogEvent{}})
		return
	}
	limit, err := parseLimit(c.Query("limit"), defaultLogLimit, maxListLimit)
	if err != nil {
		h.writeError(c, http.StatusBadRequest, "invalid_limit", err.Error())
		return
	}
	var (
		raw  []logging.LogEvent
		next uint64
	)
	if sinceParam := c.Query("since"); sinceParam != "" {
		since, parseErr := strconv.ParseUint(sinceParam, 10, 64)
		if parseErr != nil {
			h.writeError(c, http.StatusBadRequest, "invalid_since", parseErr.Error())
			return
		}
		raw, next = h.logs.Since(since, limit)
	} else {
		raw, next = h.logs.Tail(limit)
	}

	eventID := strings.TrimSpace(c.Query("event"))
	component := strings.TrimSpace(c.Query("component"))
	filtered := make([]logging.LogEvent, 0, len(raw))
	for _, evt := range raw {
		if eventID != "" && evt.EventID != eventID {
			continue
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	c.JSON(http.StatusOK, LogStreamResponse{Events: FromLogEvents(filtered), Next: next})
}

func (h *handlers) internalError(c *gin.Context, op string, err error) {
	h.logger.Error("api request failed", logging.String("op", op), logging.Error(err))
	h.writeError(c, http.StatusInternalServerError, "internal_error", err.Error())
}

func (h *handlers) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: code, Message: message})
}

func parseLimit(raw string, fallback, ceiling int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return min(limit, ceiling), nil
}
