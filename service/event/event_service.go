/*
 * @module service/event/event_service
 * @description 任务进度事件服务，管理按任务分组的SSE连接并向订阅方广播进度事件
 * @architecture 事件驱动架构 - 业务服务层
 * @documentReference ai_docs/cleaning_pipeline_design.md
 * @stateFlow 客户端订阅 -> 进度事件发布 -> 按任务广播 -> 连接断开清理
 * @rules 事件通道带缓冲，慢消费者丢弃事件而非阻塞发布方；连接断开即释放
 * @dependencies service/models, sync
 * @refs api/controllers/event_controller.go
 */

package event

import (
	"log/slog"
	"sync"
	"time"

	"datacleaner-service/service/models"
)

// EventService 任务进度事件服务
type EventService struct {
	connections map[string]map[string]*SSEClient // jobID -> connectionID -> client
	mu          sync.RWMutex
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	JobID    string
	Channel  chan *models.ProgressEvent
	Done     chan bool
	ClientIP string
}

// NewEventService 创建事件服务实例
func NewEventService() *EventService {
	return &EventService{
		connections: make(map[string]map[string]*SSEClient),
	}
}

// AddSSEConnection 为任务添加SSE订阅连接
func (s *EventService) AddSSEConnection(jobID, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[jobID] == nil {
		s.connections[jobID] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		JobID:    jobID,
		Channel:  make(chan *models.ProgressEvent, 100),
		Done:     make(chan bool),
		ClientIP: clientIP,
	}
	s.connections[jobID][connectionID] = client

	slog.Info("SSE连接已建立", "job_id", jobID, "connection_id", connectionID, "client_ip", clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接并释放资源
func (s *EventService) RemoveSSEConnection(jobID, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients, ok := s.connections[jobID]
	if !ok {
		return
	}
	client, ok := clients[connectionID]
	if !ok {
		return
	}
	delete(clients, connectionID)
	if len(clients) == 0 {
		delete(s.connections, jobID)
	}
	close(client.Done)

	slog.Info("SSE连接已断开", "job_id", jobID, "connection_id", connectionID)
}

// Publish 向任务的所有订阅连接广播进度事件
// 通道已满的慢消费者丢弃本条事件，发布方不阻塞
func (s *EventService) Publish(jobID string, event *models.ProgressEvent) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.JobID = jobID

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.connections[jobID] {
		select {
		case client.Channel <- event:
		default:
			slog.Warn("SSE事件通道已满，丢弃事件", "job_id", jobID, "connection_id", client.ID)
		}
	}
}

// ConnectionCount 任务当前的订阅连接数
func (s *EventService) ConnectionCount(jobID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections[jobID])
}
