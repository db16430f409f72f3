package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rollcall-app/rollcall/internal/sync"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Adjust this for production!
	},
}

type SyncHandler struct {
	hub *sync.Hub
}

func NewSyncHandler(hub *sync.Hub) *SyncHandler {
	return &SyncHandler{
		hub: hub,
	}
}

// HandleSync godoc
// @Summary      Open the real-time sync channel
// @Description  Upgrades to WebSocket. The client then joins an event room and exchanges attendance, same-day and settings snapshots with every other room member.
// @Tags         sync
// @Success      101  {string}  string  "Switching Protocols to WebSocket"
// @Failure      400  {object}  response.Err
// @Router       /sync [get]
func (h *SyncHandler) HandleSync(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.hub.ServeConn(conn)
}
