package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nutripredict/logger"
	"nutripredict/ml"
)

const (
	// 写超时
	writeWait = 10 * time.Second
	// 心跳间隔
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// 单条消息最大长度
	maxMessageSize = 4096
)

const (
	suggestFound    = "found"
	suggestNotFound = "not_found"
	suggestInvalid  = "invalid"
)

// suggestRequest 客户端消息
type suggestRequest struct {
	Query string `json:"query"`
}

// suggestResponse 服务端响应
type suggestResponse struct {
	Query      string    `json:"query"`
	Status     string    `json:"status"`
	Suggestion *ml.Match `json:"suggestion,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// handleSuggestSocket 输入联想：客户端每次输入发送查询，服务端返回最接近的菜名
func (h *Handlers) handleSuggestSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	requestID := GetRequestID(r.Context())
	logger.Debug("suggest client connected", zap.String("request_id", requestID))

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// 读写分离：读循环负责响应，心跳单独发送
	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("suggest websocket error", zap.String("request_id", requestID), zap.Error(err))
			}
			return
		}

		resp := h.suggest(message)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

// pingLoop 定期发送心跳，WriteControl可与WriteJSON并发调用
func (h *Handlers) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) suggest(message []byte) suggestResponse {
	var req suggestRequest
	if err := json.Unmarshal(message, &req); err != nil {
		return suggestResponse{Status: suggestInvalid, Error: "invalid message"}
	}
	resp := suggestResponse{Query: req.Query}
	match, ok := h.deps.Predictor().Suggest(req.Query)
	switch {
	case ok:
		resp.Status = suggestFound
		resp.Suggestion = &match
	case strings.TrimSpace(req.Query) == "":
		resp.Status = suggestInvalid
		resp.Error = "invalid input"
	default:
		resp.Status = suggestNotFound
		resp.Error = "dish not found"
	}
	return resp
}
