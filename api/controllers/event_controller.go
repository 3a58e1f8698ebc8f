/*
 * @module api/controllers/event_controller
 * @description 任务进度事件控制器，提供按任务订阅的SSE实时进度推送
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow SSE连接建立 -> 进度事件推送 -> 连接断开清理
 * @rules 连接建立后立即推送connected事件和任务当前状态；客户端断开即释放连接
 * @dependencies datacleaner-service/service, github.com/go-chi/chi/v5, github.com/google/uuid
 * @refs service/event/event_service.go
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"datacleaner-service/service"
	"datacleaner-service/service/event"
	"datacleaner-service/service/jobs"
	"datacleaner-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EventController 任务进度事件控制器
type EventController struct {
	eventService *event.EventService
	jobService   *jobs.JobService
}

// NewEventController 创建事件控制器实例
func NewEventController() *EventController {
	return &EventController{
		eventService: service.GlobalEventService,
		jobService:   service.GlobalJobService,
	}
}

// HandleSSE 订阅任务进度
// @Summary 订阅任务进度事件流
// @Description 通过SSE实时接收指定任务的清洗进度事件
// @Tags 事件管理
// @Param job_id path string true "任务ID"
// @Success 200 {string} string "SSE事件流"
// @Failure 404 {string} string "任务不存在"
// @Router /api/v1/events/{job_id} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := c.jobService.GetJob(jobID)
	if err != nil {
		http.Error(w, "任务不存在: "+jobID, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	connectionID := uuid.New().String()
	clientIP := r.RemoteAddr
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		clientIP = forwarded
	}

	client := c.eventService.AddSSEConnection(jobID, connectionID, clientIP)
	defer c.eventService.RemoveSSEConnection(jobID, connectionID)

	flusher, _ := w.(http.Flusher)

	// 连接建立事件携带任务当前状态，订阅晚于任务完成时客户端也能拿到结果
	connected := &models.ProgressEvent{
		JobID:     jobID,
		EventType: "connected",
		Status:    job.Status,
		Progress:  job.Progress,
		Stage:     job.CurrentStage,
		CreatedAt: time.Now(),
	}
	fmt.Fprintf(w, "data: %s\n\n", toJSON(connected))
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case evt := <-client.Channel:
			fmt.Fprintf(w, "data: %s\n\n", toJSON(evt))
			if flusher != nil {
				flusher.Flush()
			}

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// toJSON 序列化为JSON字符串，失败时返回空对象
func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
