package http

import (
	"context"
	"errors"
	"time"

	"photoshoot-studio/internal/asset/domain/model"
	"photoshoot-studio/internal/asset/domain/repository"
	"photoshoot-studio/internal/asset/usecase"
	apperrors "photoshoot-studio/internal/shared/errors"
	"photoshoot-studio/internal/shared/logger"
	"photoshoot-studio/internal/shared/utils"

	fastws "github.com/fasthttp/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const localOwner = "asset_owner"

// AssetHandler serves the asset lists of the authenticated owner over HTTP
// and streams their state over a websocket.
type AssetHandler struct {
	library *usecase.Library
	blobs   repository.BlobStore
	log     logger.Logger
}

// NewAssetHandler creates the handler.
func NewAssetHandler(library *usecase.Library, blobs repository.BlobStore, log logger.Logger) *AssetHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &AssetHandler{library: library, blobs: blobs, log: log.WithComponent("asset_http")}
}

// RegisterRoutes mounts /api/assets and /ws/assets behind protect.
func (h *AssetHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	api := router.Group("/api/assets", protect)
	api.Get("/:kind", h.List)
	api.Post("/:kind", h.Save)
	api.Delete("/:kind/error", h.ClearError)
	api.Delete("/:kind/:id", h.Delete)
	api.Get("/:kind/blob/:ref", h.Blob)

	router.Get("/ws/assets/:kind", protect, h.upgrade, websocket.New(h.stream))
}

func (h *AssetHandler) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	owner, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return writeError(c, apperrors.NewAuthorizationError("no authenticated owner"))
	}
	c.Locals(localOwner, owner)
	return c.Next()
}

// List returns the list state, fetching it first when it is empty or when
// refresh=true.
func (h *AssetHandler) List(c *fiber.Ctx) error {
	list, err := h.list(c)
	if err != nil {
		return writeError(c, err)
	}
	if _, err := list.RefreshIfEmpty(c.UserContext(), c.QueryBool("refresh")); err != nil {
		h.log.Error("asset refresh failed", zap.String("kind", string(list.Kind())), zap.Error(err))
		return writeError(c, err)
	}
	state, err := list.Snapshot()
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(state)
}

// Save adds an asset optimistically and answers with its placeholder.
func (h *AssetHandler) Save(c *fiber.Ctx) error {
	list, err := h.list(c)
	if err != nil {
		return writeError(c, err)
	}
	var req model.SaveRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperrors.NewValidationError("invalid request body").WithCause(err))
	}
	placeholder, err := list.Save(c.UserContext(), list.Owner(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"asset": placeholder})
}

// Delete removes an asset optimistically. The stored location always comes
// from the list; a storage_ref that names anything else is rejected.
func (h *AssetHandler) Delete(c *fiber.Ctx) error {
	list, err := h.list(c)
	if err != nil {
		return writeError(c, err)
	}
	id := c.Params("id")
	if err := list.Delete(c.UserContext(), id, c.Query("storage_ref")); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"deleting_id": id})
}

// ClearError dismisses the delete failure flag of a list.
func (h *AssetHandler) ClearError(c *fiber.Ctx) error {
	list, err := h.list(c)
	if err != nil {
		return writeError(c, err)
	}
	list.ClearError()
	return c.SendStatus(fiber.StatusNoContent)
}

// Blob streams image bytes stored for the authenticated owner.
func (h *AssetHandler) Blob(c *fiber.Ctx) error {
	if _, err := model.ParseKind(c.Params("kind")); err != nil {
		return writeError(c, err)
	}
	owner, err := utils.GetUserIDFromContext(c.UserContext())
	if err != nil {
		return writeError(c, apperrors.NewAuthorizationError("no authenticated owner"))
	}
	reader, contentType, err := h.blobs.OpenBlob(c.UserContext(), owner, c.Params("ref"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "private, max-age=31536000, immutable")
	return c.SendStream(reader)
}

func (h *AssetHandler) list(c *fiber.Ctx) (*usecase.List, error) {
	kind, err := model.ParseKind(c.Params("kind"))
	if err != nil {
		return nil, err
	}
	owner := utils.GetUserIDOrDefault(c.UserContext(), "")
	return h.library.List(owner, kind)
}

// wsFrame is the single message shape sent on /ws/assets.
type wsFrame struct {
	Type string            `json:"type"`
	Data usecase.ListState `json:"data"`
}

func (h *AssetHandler) stream(conn *websocket.Conn) {
	owner, _ := conn.Locals(localOwner).(string)
	kind, err := model.ParseKind(conn.Params("kind"))
	if err != nil {
		_ = conn.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
		return
	}
	states, unsubscribe, err := h.library.Subscribe(owner, kind)
	if err != nil {
		_ = conn.WriteJSON(fiber.Map{"type": "error", "error": err.Error()})
		return
	}
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if list, err := h.library.List(owner, kind); err == nil {
		if _, err := list.RefreshIfEmpty(ctx, false); err != nil {
			h.log.Warn("initial asset refresh failed", zap.String("owner", owner), zap.Error(err))
		}
	}

	// reads only detect the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Warn("asset stream read failed", zap.String("owner", owner), zap.Error(err))
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				// the owner's last session signed out
				_ = conn.WriteControl(fastws.CloseMessage,
					fastws.FormatCloseMessage(fastws.CloseNormalClosure, "signed out"),
					time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(wsFrame{Type: "assets", Data: state}); err != nil {
				h.log.Warn("asset stream write failed", zap.String("owner", owner), zap.Error(err))
				return
			}
		}
	}
}

func writeError(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	switch {
	case errors.Is(err, model.ErrUnknownKind), errors.Is(err, model.ErrBlobNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, usecase.ErrDeleteInFlight):
		status = fiber.StatusConflict
	case errors.Is(err, usecase.ErrListClosed):
		status = fiber.StatusServiceUnavailable
	}

	body := fiber.Map{"error": err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Code != "" {
			body["code"] = appErr.Code
		}
	}
	return c.Status(status).JSON(body)
}
