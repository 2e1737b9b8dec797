package http

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"customer-insights/internal/domain"
	"customer-insights/internal/router"
	"customer-insights/internal/session"
)

const requestIDHeader = "X-Request-ID"

// Handler wires HTTP routes to the page router.
type Handler struct {
	router *router.Router
	codec  *session.Codec
	logger *logrus.Logger
}

func NewHandler(r *router.Router, codec *session.Codec, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		router: r,
		codec:  codec,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(engine *gin.Engine) {
	engine.Use(requestLogger(h.logger), corsMiddleware())

	engine.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	engine.GET("/app", h.serveApp)
	engine.POST("/app", h.serveApp)
}

// PageResponse is the JSON body of /app. Session holds the parameters to send
// back on the next request and Link is the same state as a shareable URL.
type PageResponse struct {
	Page     domain.PageID     `json:"page"`
	Title    string            `json:"title"`
	Messages []router.Message  `json:"messages"`
	Data     any               `json:"data,omitempty"`
	Menu     []domain.PageID   `json:"menu"`
	Session  map[string]string `json:"session"`
	Link     string            `json:"link"`
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, Clear-Site-Data, "+requestIDHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)

		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": id,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).Round(time.Microsecond).String(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func (h *Handler) serveApp(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}

	st := h.codec.Decode(session.ParamsFromValues(c.Request.URL.Query()))
	in := router.Input{
		Values:    c.Request.Form,
		Submitted: c.Request.Method == http.MethodPost,
	}

	next, view, err := h.router.Dispatch(c.Request.Context(), st, in)
	if err != nil {
		h.fail(c, st, err)
		return
	}

	params, err := h.codec.Encode(next)
	if err != nil {
		h.fail(c, next, err)
		return
	}

	if view.DiscardCache {
		c.Header("Clear-Site-Data", `"cache"`)
	}
	c.Header("Cache-Control", "no-store")

	if a := view.Attachment; a != nil {
		c.Header("Content-Disposition", "attachment; filename="+strconv.Quote(a.Filename))
		c.Data(http.StatusOK, a.ContentType, a.Body)
		return
	}

	messages := view.Messages
	if messages == nil {
		messages = []router.Message{}
	}
	c.JSON(http.StatusOK, PageResponse{
		Page:     view.Page,
		Title:    view.Title,
		Messages: messages,
		Data:     view.Data,
		Menu:     view.Menu,
		Session:  params,
		Link:     shareLink(c.Request.URL.Path, params),
	})
}

// fail logs err and answers with a generic 500. The session is not advanced.
func (h *Handler) fail(c *gin.Context, st session.State, err error) {
	h.logger.WithFields(logrus.Fields{
		"request_id": c.GetString("request_id"),
		"page":       st.Page,
		"user":       st.CurrentUser,
	}).Errorf("serve page: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func shareLink(path string, params session.Params) string {
	u := url.URL{Path: path, RawQuery: params.Values().Encode()}
	return u.String()
}
