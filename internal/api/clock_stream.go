package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stroke-code-server/internal/middleware"
)

const clockWriteWait = 5 * time.Second

// handleClockStream pushes a clock snapshot to the client on every tick.
// Elapsed time in each snapshot is recomputed from the arrival instant, so a
// slow client never sees accumulated drift.
func (s *Server) handleClockStream(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithField("error", err.Error()).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reader loop: detects the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	timer := s.session.Timer()
	send := func() error {
		timer.Tick()
		_ = conn.SetWriteDeadline(time.Now().Add(clockWriteWait))
		return conn.WriteJSON(timer.Snapshot())
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-c.Request.Context().Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(clockWriteWait))
			return
		case <-ticker.C:
			if err := send(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"correlation_id": c.GetString(middleware.CorrelationIDKey),
					"error":          err.Error(),
				}).Debug("Clock stream closed")
				return
			}
		}
	}
}
