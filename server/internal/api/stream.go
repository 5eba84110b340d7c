package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamMaxMessage   = 64 << 10
)

// streamFrame 服务端下发的帧：type 为 turns 或 error。
type streamFrame struct {
	Type  string         `json:"type"`
	Turns *turnsResponse `json:"turns,omitempty"`
	Error string         `json:"error,omitempty"`
}

// handleStream 在 WebSocket 上逐条处理候选人输入。
// 客户端帧：{"text": "..."}；每个输入对应一个服务端帧。
func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.sessions.Get(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session", id, "err", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamMaxMessage)
	s.logger.Info("stream opened", "session", id, "remote", c.Request.RemoteAddr)

	for {
		var req respondRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("stream read failed", "session", id, "err", err)
			}
			break
		}

		frame := streamFrame{Type: "turns"}
		resp, err := s.respond(c.Request.Context(), id, req.Text)
		if err != nil {
			frame = streamFrame{Type: "error", Error: err.Error()}
		} else {
			frame.Turns = &resp
		}

		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(frame); err != nil {
			s.logger.Warn("stream write failed", "session", id, "err", err)
			break
		}
		if frame.Turns != nil && frame.Turns.Done {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "interview complete")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(streamWriteTimeout))
			break
		}
	}
	s.logger.Info("stream closed", "session", id)
}
