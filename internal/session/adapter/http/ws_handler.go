package http

import (
	"context"
	"time"

	"photoshoot-studio/internal/session/domain/model"
	"photoshoot-studio/internal/session/usecase"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/shared/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	localToken = "session_token"
	localRoute = "session_route"

	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// SessionHandler serves one session projector per websocket client.
type SessionHandler struct {
	projectors *usecase.ProjectorFactory
	log        logger.Logger
}

// NewSessionHandler creates the handler.
func NewSessionHandler(projectors *usecase.ProjectorFactory, log logger.Logger) *SessionHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &SessionHandler{projectors: projectors, log: log.WithComponent("session_ws")}
}

// RegisterRoutes mounts GET /ws/session behind optionalAuth, which attaches
// the caller's session token when it has one. The client passes its current
// route as ?route=.
func (h *SessionHandler) RegisterRoutes(router fiber.Router, optionalAuth fiber.Handler) {
	handlers := []fiber.Handler{h.upgrade, websocket.New(h.serve)}
	if optionalAuth != nil {
		handlers = append([]fiber.Handler{optionalAuth}, handlers...)
	}
	router.Get("/ws/session", handlers...)
}

func (h *SessionHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if token, err := utils.GetTokenFromContext(c.UserContext()); err == nil {
		c.Locals(localToken, token)
	}
	c.Locals(localRoute, c.Query("route", "/"))
	return c.Next()
}

func (h *SessionHandler) serve(conn *websocket.Conn) {
	clientID := uuid.NewString()
	token, _ := conn.Locals(localToken).(string)
	route, _ := conn.Locals(localRoute).(string)
	log := h.log.WithFields(map[string]interface{}{"client": clientID})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	projector := h.projectors.New(route)
	defer projector.Close()
	projector.Start(ctx, token)
	log.Debug("session stream opened", zap.String("route", route))

	go h.readLoop(ctx, cancel, conn, projector, log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-projector.Done():
			return
		case frame := <-projector.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				log.Warn("session frame write failed", zap.String("type", frame.Type), zap.Error(err))
				return
			}
		}
	}
}

func (h *SessionHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, projector *usecase.Projector, log logger.Logger) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg model.ClientFrame
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("session stream read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case model.ClientRoute:
			projector.SetRoute(msg.Route)
		case model.ClientTourDismissed:
			if err := projector.DismissTour(ctx); err != nil {
				log.Warn("tour dismissal failed", zap.Error(err))
				h.sendError(projector, err)
			}
		case model.ClientAuth:
			if err := projector.Attach(ctx, msg.Token); err != nil {
				log.Warn("session attach failed", zap.Error(err))
				h.sendError(projector, err)
			}
		default:
			log.Debug("unknown client frame", zap.String("type", msg.Type))
		}
	}
}

// sendError is a best-effort notice; the writer may already be gone.
func (h *SessionHandler) sendError(projector *usecase.Projector, err error) {
	projector.Notify(model.Frame{Type: model.FrameError, Data: err.Error()})
}
