package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/heston/internal/simulation/application"
	"github.com/wyfcoding/heston/pkg/logger"
)

// Handler 模拟会话 HTTP 接口
type Handler struct {
	app *application.SimulationService
}

// NewHandler 创建 Handler 并注册路由
func NewHandler(r gin.IRouter, app *application.SimulationService) *Handler {
	h := &Handler{app: app}
	v1 := r.Group("/api/v1/simulations")
	{
		v1.POST("", h.Create)
		v1.GET("", h.List)
		v1.GET("/:id", h.Get)
		v1.PUT("/:id", h.Reinitialize)
		v1.DELETE("/:id", h.Delete)
		v1.POST("/:id/batches", h.RunBatch)
		v1.POST("/:id/run", h.RunUntil)
		v1.GET("/:id/percentiles", h.ListPercentiles)
		v1.GET("/:id/percentiles/:p", h.GetPercentile)
	}
	return h
}

func (h *Handler) Create(c *gin.Context) {
	var cmd application.CreateSimulationCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dto, err := h.app.CreateSimulation(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto)
}

func (h *Handler) Reinitialize(c *gin.Context) {
	var cmd application.ReinitializeCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd.ID = c.Param("id")

	dto, err := h.app.Reinitialize(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) RunBatch(c *gin.Context) {
	var cmd application.RunBatchCommand
	// 空请求体使用默认批次大小
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&cmd); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	cmd.ID = c.Param("id")

	dto, err := h.app.RunBatch(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) RunUntil(c *gin.Context) {
	var cmd application.RunUntilCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd.ID = c.Param("id")

	dto, err := h.app.RunUntil(c.Request.Context(), cmd, nil)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) Get(c *gin.Context) {
	dto, err := h.app.GetSimulation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto)
}

func (h *Handler) List(c *gin.Context) {
	dtos, err := h.app.ListSimulations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dtos)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.app.DeleteSimulation(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListPercentiles(c *gin.Context) {
	paths, err := h.app.ListPercentilePaths(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paths)
}

func (h *Handler) GetPercentile(c *gin.Context) {
	p, err := strconv.Atoi(c.Param("p"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "percentile must be an integer"})
		return
	}

	path, err := h.app.GetPercentilePath(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, path)
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "simulation request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

// StatusCode 将应用层错误映射为 HTTP 状态码
func StatusCode(err error) int {
	switch {
	case errors.Is(err, application.ErrSimulationNotFound),
		errors.Is(err, application.ErrPercentileUnavailable):
		return http.StatusNotFound
	case errors.Is(err, application.ErrTooManySessions):
		return http.StatusTooManyRequests
	case application.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
