package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dymeta/log"
	"dymeta/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Progress 默认进度推送枢纽
var Progress = NewHub()

// Hub 按任务ID分组的进度长连接。编排器每处理完一条记录
// 发布一次报表快照，这里扇出给所有订阅者。
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*websocket.Conn]bool)}
}

func (h *Hub) subscribe(runID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[*websocket.Conn]bool)
	}
	h.subs[runID][conn] = true
}

func (h *Hub) unsubscribe(runID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.subs[runID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subs, runID)
		}
	}
}

// Publish 推送一次报表快照，写失败的连接直接踢掉
func (h *Hub) Publish(report models.BatchReport) {
	buf, err := json.Marshal(report)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subs[report.RunID] {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
			log.Debug("进度推送失败，移除连接: %v", err)
			conn.Close()
			delete(h.subs[report.RunID], conn)
		}
	}
}

// Serve 升级连接并订阅指定任务的进度，对端关闭即退订
func (h *Hub) Serve(c *gin.Context, runID string, initial models.BatchReport) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("ws upgrade error: %v", err)
		return
	}
	// 先推一帧当前状态，晚接入的客户端不用等下一条记录。
	// 必须写完再订阅：订阅之后这条连接只允许Publish持锁写，
	// 一条连接同一时刻只能有一个写者。
	if buf, err := json.Marshal(initial); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, buf)
	}

	h.subscribe(runID, conn)
	defer func() {
		h.unsubscribe(runID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
