package session

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/euphorie/Euphorie/backend/go/internal/v1/logging"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/metrics"
	"github.com/euphorie/Euphorie/backend/go/internal/v1/transport"
)

// ServeWS upgrades an HTTP request to the realtime socket. The connection
// cap is checked before the upgrade so refused clients get a clean 503.
func (co *Coordinator) ServeWS(c *gin.Context) {
	if co.hub.Len() >= co.cfg.MaxConnections {
		metrics.ConnectionsRejected.Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "server at connection capacity"})
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     co.checkOrigin,
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	client := transport.NewClient(conn, co)
	if err := co.hub.Register(client); err != nil {
		metrics.ConnectionsRejected.Inc()
		_ = conn.Close()
		return
	}

	metrics.IncConnection()
	logging.Info(c.Request.Context(), "connection accepted",
		zap.String("connection_id", string(client.GetID())),
		zap.String("remote_addr", c.ClientIP()))
	client.Start()
}

// checkOrigin enforces --cors-origin when set; browsers that send no Origin
// header (non-browser clients) are always admitted.
func (co *Coordinator) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || co.cfg.CORSOrigin == "" {
		return true
	}
	return origin == co.cfg.CORSOrigin
}
