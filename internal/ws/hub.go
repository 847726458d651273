package ws

import (
	"context"
	"encoding/json"

	"wisefido-vitals/internal/models"

	"go.uber.org/zap"
)

// Envelope WebSocket 推送信封
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// SnapshotFunc 新客户端接入时的初始快照
// 推送是即发即弃的：接入之前的事件不会补发，客户端靠快照拿到当前状态
type SnapshotFunc func(ctx context.Context) [][]byte

// Hub 维护在线客户端集合并向所有客户端广播事件
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	snapshot   SnapshotFunc
	logger     *zap.Logger
}

// NewHub 创建广播中心
// snapshot 可以为 nil（不发送初始快照）
func NewHub(snapshot SnapshotFunc, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot:   snapshot,
		logger:     logger,
	}
}

// Run 事件循环（单goroutine持有clients，无需加锁）
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("WebSocket client connected",
				zap.Int("client_count", len(h.clients)),
			)
			if h.snapshot != nil {
				for _, msg := range h.snapshot(ctx) {
					select {
					case client.send <- msg:
					default:
					}
				}
			}

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info("WebSocket client disconnected",
					zap.Int("client_count", len(h.clients)),
				)
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 发送缓冲已满，认为客户端已死，移除
					h.logger.Warn("WebSocket client send buffer full, dropping client")
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// BroadcastSensorUpdate 广播实时读数事件
func (h *Hub) BroadcastSensorUpdate(event models.SensorUpdateEvent) {
	h.publish(models.EventSensorUpdate, event)
}

// BroadcastNewAlert 广播新报警事件
func (h *Hub) BroadcastNewAlert(event models.NewAlertEvent) {
	h.publish(models.EventNewAlert, event)
}

func (h *Hub) publish(event string, payload interface{}) {
	message, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		h.logger.Error("Failed to marshal broadcast event",
			zap.String("event", event),
			zap.Error(err),
		)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		// 广播队列满时丢弃，不阻塞消息处理链路
		h.logger.Warn("Broadcast queue full, event dropped",
			zap.String("event", event),
		)
	}
}
