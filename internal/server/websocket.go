package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/kfp-startpage/internal/constants"
	"github.com/kapu/kfp-startpage/internal/domain"
	"go.uber.org/zap"
)

// SnapshotMessage is what /ws clients receive for every state transition.
type SnapshotMessage struct {
	domain.Snapshot
	HTML string `json:"html"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.page.Subscribe()
	defer unsubscribe()

	// clients never send anything; reading only detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := s.sendSnapshot(conn, s.page.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(constants.WebSocketConfig.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := s.sendSnapshot(conn, snap); err != nil {
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(constants.WebSocketConfig.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logger.Debug("WebSocket ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) sendSnapshot(conn *websocket.Conn, snap domain.Snapshot) error {
	content, err := s.page.HTML(snap)
	if err != nil {
		s.logger.Error("Failed to render document for WebSocket", zap.Error(err))
		return err
	}

	_ = conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
	if err := conn.WriteJSON(SnapshotMessage{Snapshot: snap, HTML: content}); err != nil {
		s.logger.Debug("WebSocket write failed", zap.Error(err))
		return err
	}
	return nil
}
