// internal/api/websocket.go
package api

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/models"
	"github.com/Corphon/AICodeReviewer/internal/review"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket 事件类型
const (
	EventChunkStarted    = "chunk_started"
	EventChunkReviewed   = "chunk_reviewed"
	EventChunkFailed     = "chunk_failed"
	EventReviewCompleted = "review_completed"
	EventReviewFailed    = "review_failed"
	EventError           = "error"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsWriteWait  = 10 * time.Second
	wsMaxMessage = 1 << 20
)

// wsLimits 与 HTTP 审查路由共用的输入上限和限流
type wsLimits struct {
	maxMessage int64
	limiter    *RateLimiter
	rateLimit  int
	rateWindow time.Duration
}

func (l wsLimits) readLimit() int64 {
	if l.maxMessage > 0 {
		return l.maxMessage
	}
	return wsMaxMessage
}

func (l wsLimits) allow(clientIP string) bool {
	if l.limiter == nil {
		return true
	}
	allowed, _, _ := l.limiter.Allow(clientIP, l.rateLimit, l.rateWindow)
	return allowed
}

// ReviewEvent 推送给客户端的进度事件
type ReviewEvent struct {
	Type      string                 `json:"type"`
	Index     int                    `json:"index"`
	Total     int                    `json:"total,omitempty"`
	Review    string                 `json:"review,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Result    *models.ReviewResponse `json:"result,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// wsReviewStream 把编排器进度写到连接上
type wsReviewStream struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger *utils.Logger
	err    error
}

func (s *wsReviewStream) send(event ReviewEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	event.Timestamp = time.Now()
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := s.conn.WriteJSON(event); err != nil {
		s.err = err
		s.logger.Debug("websocket write failed", map[string]interface{}{"error": err})
	}
}

func (s *wsReviewStream) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err != nil
}

func (s *wsReviewStream) OnChunkStart(index, total int) {
	s.send(ReviewEvent{Type: EventChunkStarted, Index: index, Total: total})
}

func (s *wsReviewStream) OnChunkReviewed(cr review.ChunkReview, total int) {
	s.send(ReviewEvent{Type: EventChunkReviewed, Index: cr.Index, Total: total, Review: cr.Text})
}

func (s *wsReviewStream) OnChunkFailed(index, total int, err error) {
	s.send(ReviewEvent{Type: EventChunkFailed, Index: index, Total: total})
}

// ReviewWebSocket 客户端发送 {code}，服务端逐块推送审查进度。
// 连接断开时取消正在进行的审查
func (h *Handler) ReviewWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Warn("WebSocket升级失败", map[string]interface{}{"error": err})
		return
	}
	defer conn.Close()

	h.Metrics.IncGauge("ws_connections")
	defer h.Metrics.DecGauge("ws_connections")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn.SetReadLimit(h.wsLimits.readLimit())
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	requests := make(chan models.ReviewRequest)
	go readReviewRequests(ctx, cancel, conn, requests)
	go keepAlive(ctx, conn)

	stream := &wsReviewStream{conn: conn, logger: utils.GetLogger()}
	clientIP := c.ClientIP()

	for {
		var req models.ReviewRequest
		select {
		case <-ctx.Done():
			return
		case req = <-requests:
		}

		if strings.TrimSpace(req.Code) == "" {
			stream.send(ReviewEvent{Type: EventError, Index: -1, Message: "Code is required"})
			continue
		}
		if !h.wsLimits.allow(clientIP) {
			h.Metrics.IncrementCounter("rate_limited_total")
			stream.send(ReviewEvent{Type: EventError, Index: -1, Message: "Rate limit exceeded"})
			continue
		}

		result, err := h.ReviewService.Review(ctx, req.Code, stream)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			stream.send(ReviewEvent{Type: EventError, Index: -1, Message: errorMessage(err)})
			continue
		}

		resp := toReviewResponse(result)
		if result.OK() {
			stream.send(ReviewEvent{Type: EventReviewCompleted, Index: -1, Total: result.TotalChunks, Review: resp.Review, Result: &resp})
		} else {
			stream.send(ReviewEvent{Type: EventReviewFailed, Index: result.FailedChunk, Total: result.TotalChunks, Message: result.Message(), Result: &resp})
		}

		if stream.failed() {
			return
		}
	}
}

// readReviewRequests 持续读取客户端消息，读取失败（断开、超限、超时）时取消 ctx
func readReviewRequests(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- models.ReviewRequest) {
	defer cancel()
	for {
		var req models.ReviewRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.GetLogger().Debug("websocket closed", map[string]interface{}{"error": err})
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}

// keepAlive 定期发送 ping，审查期间客户端无消息也不会触发读超时
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func errorMessage(err error) string {
	_, _, message := statusFor(err)
	return message
}

// originChecker 只接受允许列表中的 Origin；无 Origin 的非浏览器客户端放行
func originChecker(allowed []string) func(origin string) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(origin string) bool {
		if origin == "" {
			return true
		}
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

var _ review.Observer = (*wsReviewStream)(nil)
