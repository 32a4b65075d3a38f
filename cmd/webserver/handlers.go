package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/asr"
	"github.com/ccp-p/asr-media-cli/caption-aligner/pkg/utils"
)

// StatsProvider 提供 ASR 服务统计
type StatsProvider interface {
	GetStats() map[string]asr.ServiceStats
}

// Server HTTP 任务接口
type Server struct {
	tasks *TaskManager
	stats StatsProvider
}

// NewServer 创建服务，stats 可以为空
func NewServer(tasks *TaskManager, stats StatsProvider) *Server {
	return &Server{tasks: tasks, stats: stats}
}

// Router 注册路由
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api")
	{
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.GET("/tasks/:id/segments", s.handleGetSegments)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.GET("/asr/stats", s.handleASRStats)
	}
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		utils.Debug("接收到 API 请求: %s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

// respondWithError 发送错误 JSON 响应
func respondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, BaseResponse{Code: code, Msg: message})
}

// handleCreateTask 创建对齐任务
func (s *Server) handleCreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "无效的请求体: "+err.Error())
		return
	}
	if !utils.CheckFileExists(req.AudioPath) {
		respondWithError(c, http.StatusBadRequest, "音频文件不存在: "+req.AudioPath)
		return
	}

	taskID, err := s.tasks.Create(req.AudioPath, req.Language)
	if errors.Is(err, ErrQueueFull) {
		respondWithError(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	resp := CreateTaskResponse{
		BaseResponse: BaseResponse{Code: 0},
		Data: &struct {
			TaskID string `json:"task_id"`
		}{TaskID: taskID},
	}
	c.JSON(http.StatusAccepted, resp)
}

// handleGetTask 查询任务状态
func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.tasks.Get(c.Param("id"))
	if !ok {
		respondWithError(c, http.StatusNotFound, "任务不存在")
		return
	}
	c.JSON(http.StatusOK, TaskStatusResponse{Data: task.statusData()})
}

// handleGetSegments 获取已完成任务的字幕段
func (s *Server) handleGetSegments(c *gin.Context) {
	task, ok := s.tasks.Get(c.Param("id"))
	if !ok {
		respondWithError(c, http.StatusNotFound, "任务不存在")
		return
	}
	switch task.Status {
	case StatusSuccess:
		c.JSON(http.StatusOK, SegmentsResponse{Data: task.Segments})
	case StatusFailed:
		respondWithError(c, http.StatusUnprocessableEntity, "任务失败: "+task.Error)
	default:
		respondWithError(c, http.StatusConflict, "任务尚未完成: "+task.Status)
	}
}

// handleDeleteTask 删除任务
func (s *Server) handleDeleteTask(c *gin.Context) {
	if !s.tasks.Delete(c.Param("id")) {
		respondWithError(c, http.StatusNotFound, "任务不存在")
		return
	}
	c.JSON(http.StatusOK, BaseResponse{Code: 0, Msg: "已删除"})
}

// handleASRStats 返回 ASR 服务调用统计
func (s *Server) handleASRStats(c *gin.Context) {
	if s.stats == nil {
		c.JSON(http.StatusOK, gin.H{"code": 0, "data": gin.H{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "data": s.stats.GetStats()})
}
