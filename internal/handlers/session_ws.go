// internal/handlers/session_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
	"github.com/tribalfm/tribal/internal/middleware"
	"github.com/tribalfm/tribal/internal/room"
)

// SessionWSHandler upgrades the HTTP connection to a WebSocket and runs the
// session event loop for it. Clients join playlist rooms by sending a
// "playlist" event; disconnecting removes the connection from every room it
// joined.
func SessionWSHandler(logger *logrus.Logger, ss *SessionServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"tribal"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "tribal" {
			c.Close(BadSubprotocolError, "client must speak the tribal subprotocol")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		conn := room.NewConn()
		conn.Cancel = cancel

		middleware.LogWebSocketConnect(logger, conn.ID.String(), remoteAddr, r.URL.Path)

		go writePump(ctx, c, conn, logger)

		readPump(ctx, c, ss, conn, logger)

		// ---- Cleanup after readPump exits ----
		ss.Registry.LeaveAll(conn)
		cancel()
		middleware.LogWebSocketDisconnect(logger, conn.ID.String(), remoteAddr, r.URL.Path, nil)
	}
}

// readPump handles incoming messages until the connection closes or errors.
func readPump(ctx context.Context, c *websocket.Conn, ss *SessionServer, conn *room.Conn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				logger.Infof("session: websocket closed normally for conn %s", conn.ID)
			} else if !strings.Contains(err.Error(), "context canceled") {
				logger.Warnf("session: read error for conn %s: %v (CloseStatus: %d)", conn.ID, err, closeStatus)
			}
			return
		}

		if typ != websocket.MessageText {
			logger.Warnf("session: non-text message type %d from conn %s, ignoring", typ, conn.ID)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			logger.Warnf("session: invalid json from conn %s: %v", conn.ID, err)
			conn.WriteError("invalid JSON format")
			continue
		}

		ss.handleSessionMessage(ctx, conn, packet)
	}
}

// writePump drains the connection's OutChan onto the websocket and keeps the
// connection alive with periodic pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *room.Conn, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	defer func() {
		_ = c.Close(websocket.StatusGoingAway, "write pump stopping")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("session: failed to marshal outgoing msg for conn %s: %v", conn.ID, err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("session: failed to write to websocket for conn %s: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("session: ping failed for conn %s: %v. Assuming disconnect.", conn.ID, err)
				return
			}
		}
	}
}
