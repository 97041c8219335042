package server

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unknproject/loader/internal/catalog"
	"github.com/unknproject/loader/internal/config"
	"github.com/unknproject/loader/internal/domain"
	"github.com/unknproject/loader/internal/engine"
	"github.com/unknproject/loader/internal/inject"
	"github.com/unknproject/loader/internal/logbuf"
	"github.com/unknproject/loader/internal/presence"
	"github.com/unknproject/loader/internal/storage"
)

type response struct {
	Ok    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type injectRequest struct {
	Name string `json:"name" binding:"required"`
}

type injectFileRequest struct {
	Path    string `json:"path" binding:"required"`
	Process string `json:"process" binding:"required"`
}

// ProcessLister reports the executables currently running.
type ProcessLister interface {
	Names() ([]string, error)
}

type payloadView struct {
	domain.Payload
	Strategy string `json:"strategy"`
	Cached   bool   `json:"cached"`
}

type messageView struct {
	engine.Result
	Text string `json:"text"`
}

// Handler serves the control API.
type Handler struct {
	orch     *engine.Orchestrator
	catalog  *catalog.Registry
	helpers  *inject.Helpers
	procs    ProcessLister
	store    *storage.Store
	logs     *logbuf.Buffer
	presence *presence.Announcer
	metrics  http.Handler
	logger   *slog.Logger
}

// NewHandler creates a Handler. presence and metrics may be nil.
func NewHandler(
	orch *engine.Orchestrator,
	catalog *catalog.Registry,
	helpers *inject.Helpers,
	procs ProcessLister,
	store *storage.Store,
	logs *logbuf.Buffer,
	presence *presence.Announcer,
	metrics http.Handler,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		orch:     orch,
		catalog:  catalog,
		helpers:  helpers,
		procs:    procs,
		store:    store,
		logs:     logs,
		presence: presence,
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/ping", h.Ping)

	router.GET("/payloads", h.ListPayloads)
	router.POST("/payloads/refresh", h.RefreshPayloads)
	router.DELETE("/payloads/:name/cache", h.UninstallPayload)
	router.GET("/processes", h.ListProcesses)

	router.POST("/inject", h.Inject)
	router.POST("/inject/file", h.InjectFile)
	router.GET("/status", h.Status)
	router.GET("/messages", h.Messages)

	router.DELETE("/helpers/:arch", h.DeleteHelpers)

	router.GET("/logs", h.Logs)
	router.DELETE("/logs", h.ClearLogs)
	router.GET("/stats", h.Stats)
	router.DELETE("/stats", h.ResetStats)
	router.GET("/presence", h.Presence)

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics))
	}
}

func (h *Handler) Ping(c *gin.Context) {
	data := gin.H{
		"version":    config.Version,
		"build_time": config.BuildTime,
	}
	if id, err := h.store.InstallID(); err != nil {
		h.logger.Warn("failed to read install id", "err", err)
	} else {
		data["install_id"] = id
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: data})
}

func (h *Handler) ListPayloads(c *gin.Context) {
	list := h.catalog.List()
	if c.Query("grouped") == "true" {
		c.JSON(http.StatusOK, response{Ok: true, Data: list.GroupByGame()})
		return
	}

	payloads := list.Payloads()
	views := make([]payloadView, 0, len(payloads))
	for _, p := range payloads {
		_, err := os.Stat(p.LocalPath())
		views = append(views, payloadView{
			Payload:  p,
			Strategy: inject.Select(p).String(),
			Cached:   err == nil,
		})
	}

	data := gin.H{"payloads": views}
	if at := h.catalog.FetchedAt(); !at.IsZero() {
		data["fetched_at"] = at
	}
	if err := h.catalog.Err(); err != nil {
		data["refresh_error"] = err.Error()
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: data})
}

func (h *Handler) RefreshPayloads(c *gin.Context) {
	if err := h.catalog.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, response{Ok: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: gin.H{"count": h.catalog.List().Len()}})
}

func (h *Handler) UninstallPayload(c *gin.Context) {
	p, err := h.catalog.Lookup(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, response{Ok: false, Error: err.Error()})
		return
	}

	if err := os.Remove(p.LocalPath()); err != nil {
		if os.IsNotExist(err) {
			c.JSON(http.StatusNotFound, response{Ok: false, Error: "payload is not downloaded"})
			return
		}
		h.logger.Error("failed to uninstall", "name", p.Name, "err", err)
		c.JSON(http.StatusInternalServerError, response{Ok: false, Error: "Failed to uninstall: " + err.Error()})
		return
	}

	h.logger.Info("uninstalled payload", "name", p.Name, "path", p.LocalPath())
	c.JSON(http.StatusOK, response{Ok: true})
}

// ListProcesses returns the catalog's target executables, or with
// ?running=true the executables running right now.
func (h *Handler) ListProcesses(c *gin.Context) {
	if c.Query("running") != "true" {
		c.JSON(http.StatusOK, response{Ok: true, Data: h.catalog.List().Processes()})
		return
	}

	names, err := h.procs.Names()
	if err != nil {
		h.logger.Error("failed to list processes", "err", err)
		c.JSON(http.StatusInternalServerError, response{Ok: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: names})
}

func (h *Handler) Inject(c *gin.Context) {
	var req injectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Ok: false, Error: err.Error()})
		return
	}

	p, err := h.catalog.Lookup(req.Name)
	if err != nil {
		c.JSON(http.StatusNotFound, response{Ok: false, Error: err.Error()})
		return
	}

	h.submit(c, engine.CatalogRequest(p))
}

func (h *Handler) InjectFile(c *gin.Context) {
	var req injectFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response{Ok: false, Error: err.Error()})
		return
	}

	h.submit(c, engine.FileRequest(req.Path, req.Process))
}

func (h *Handler) submit(c *gin.Context, req engine.Request) {
	id, err := h.orch.Submit(req)
	if err != nil {
		c.JSON(submitStatus(err), response{Ok: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, response{Ok: true, Data: gin.H{"session_id": id}})
}

func submitStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnsupportedHost):
		return http.StatusUnprocessableEntity
	default:
		// malformed requests and non-library files
		return http.StatusBadRequest
	}
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, response{Ok: true, Data: h.orch.Snapshot()})
}

func (h *Handler) Messages(c *gin.Context) {
	results := h.orch.Drain()
	views := make([]messageView, 0, len(results))
	for _, r := range results {
		views = append(views, messageView{Result: r, Text: r.String()})
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: views})
}

func (h *Handler) DeleteHelpers(c *gin.Context) {
	arches, err := domain.ParseArch(c.Param("arch"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response{Ok: false, Error: err.Error()})
		return
	}

	if err := h.helpers.Delete(arches...); err != nil {
		c.JSON(http.StatusInternalServerError, response{Ok: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response{Ok: true})
}

func (h *Handler) Logs(c *gin.Context) {
	n := 0
	if v := c.Query("tail"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, response{Ok: false, Error: "tail must be a non-negative integer"})
			return
		}
		n = parsed
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: h.logs.Tail(n)})
}

func (h *Handler) ClearLogs(c *gin.Context) {
	h.logs.Clear()
	c.JSON(http.StatusOK, response{Ok: true})
}

func (h *Handler) Stats(c *gin.Context) {
	st := h.store.Statistics()
	c.JSON(http.StatusOK, response{Ok: true, Data: gin.H{
		"opened_count":     st.OpenedCount,
		"inject_counts":    st.InjectCounts,
		"total_injections": st.TotalInjections(),
	}})
}

func (h *Handler) ResetStats(c *gin.Context) {
	if err := h.store.ResetStatistics(); err != nil {
		c.JSON(http.StatusInternalServerError, response{Ok: false, Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, response{Ok: true})
}

func (h *Handler) Presence(c *gin.Context) {
	if h.presence == nil {
		c.JSON(http.StatusOK, response{Ok: true, Data: gin.H{"enabled": false}})
		return
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: gin.H{
		"enabled":  true,
		"activity": h.presence.Current(),
	}})
}
