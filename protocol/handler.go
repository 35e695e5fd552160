package protocol

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/denmalbas007/draw-together/domain"
)

// Handler decodes inbound frames, validates them per variant and dispatches
// the typed operation to the hub. Malformed or unknown messages are dropped;
// the connection stays open.
type Handler struct {
	hub      domain.RoomHub
	validate *validator.Validate
}

func NewHandler(hub domain.RoomHub) *Handler {
	return &Handler{
		hub:      hub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) Handle(conn domain.Connection, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("invalid message", "room", conn.Room(), "userId", conn.UserID(), "error", err)
		return
	}

	switch env.Type {
	case TypeStroke:
		var msg StrokeMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.AddStroke(conn, domain.Stroke{
			ID:      msg.ID,
			Points:  msg.Points,
			Color:   msg.Color,
			Size:    msg.Size,
			LayerID: msg.LayerID,
			Tool:    msg.Tool,
			Text:    msg.Text,
		})

	case TypeUndo:
		h.hub.UndoLast(conn)

	case TypeAddLayer:
		var msg AddLayerMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.AddLayer(conn, msg.ID, msg.Name)

	case TypeClearLayer:
		var msg ClearLayerMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.ClearLayer(conn, msg.LayerID)

	case TypeCursor:
		var msg CursorMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.MoveCursor(conn, *msg.X, *msg.Y)

	case TypeChat:
		var msg ChatInMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.AppendChat(conn, msg.Text)

	case TypeReaction:
		var msg ReactionMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.SendReaction(conn, msg.Emoji, *msg.X, *msg.Y)

	case TypeStartTimer:
		var msg StartTimerMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.StartTimer(conn, msg.Duration)

	case TypeStopTimer:
		h.hub.StopTimer(conn)

	case TypeSaveThumbnail:
		var msg SaveThumbnailMessage
		if !h.decode(conn, env.Type, data, &msg) {
			return
		}
		h.hub.SaveThumbnail(conn, msg.ImageData)

	default:
		slog.Debug("unknown message type", "type", env.Type, "room", conn.Room(), "userId", conn.UserID())
	}
}

func (h *Handler) decode(conn domain.Connection, msgType string, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("malformed message", "type", msgType, "room", conn.Room(), "userId", conn.UserID(), "error", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		slog.Warn("message failed validation", "type", msgType, "room", conn.Room(), "userId", conn.UserID(), "error", err)
		return false
	}
	return true
}
