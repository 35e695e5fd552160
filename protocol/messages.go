package protocol

import (
	"encoding/json"

	"github.com/denmalbas007/draw-together/domain"
)

// Message type discriminants, client → server and server → client.
const (
	TypeInit          = "init"
	TypeStroke        = "stroke"
	TypeUndo          = "undo"
	TypeRemoveStroke  = "remove_stroke"
	TypeAddLayer      = "add_layer"
	TypeLayerAdded    = "layer_added"
	TypeClearLayer    = "clear_layer"
	TypeLayerCleared  = "layer_cleared"
	TypeCursor        = "cursor"
	TypeUserJoined    = "user_joined"
	TypeUserLeft      = "user_left"
	TypeChat          = "chat"
	TypeReaction      = "reaction"
	TypeStartTimer    = "start_timer"
	TypeStopTimer     = "stop_timer"
	TypeTimerStarted  = "timer_started"
	TypeTimerStopped  = "timer_stopped"
	TypeSaveThumbnail = "save_thumbnail"
	TypeError         = "error"
)

type envelope struct {
	Type string `json:"type"`
}

// Inbound variants. Coordinates are pointers so that a legitimate 0 passes
// the required check.

type StrokeMessage struct {
	ID      string         `json:"id" validate:"required"`
	Points  []domain.Point `json:"points" validate:"required,min=1"`
	Color   string         `json:"color" validate:"required"`
	Size    float64        `json:"size" validate:"required,gt=0"`
	LayerID string         `json:"layer_id" validate:"required"`
	Tool    string         `json:"tool" validate:"omitempty,oneof=brush eraser line rect circle text fill-marker"`
	Text    string         `json:"text"`
}

type AddLayerMessage struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

type ClearLayerMessage struct {
	LayerID string `json:"layer_id" validate:"required"`
}

type CursorMessage struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

type ChatInMessage struct {
	Text string `json:"text" validate:"required"`
}

type ReactionMessage struct {
	Emoji string   `json:"emoji" validate:"required"`
	X     *float64 `json:"x" validate:"required"`
	Y     *float64 `json:"y" validate:"required"`
}

type StartTimerMessage struct {
	Duration float64 `json:"duration" validate:"omitempty,gt=0"`
}

type SaveThumbnailMessage struct {
	ImageData string `json:"image_data" validate:"required"`
}

// Outbound events.

type UserInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
}

type RoomPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Layers      []domain.Layer  `json:"layers"`
	Strokes     []domain.Stroke `json:"strokes"`
	HasPassword bool            `json:"has_password"`
	TimerEnd    float64         `json:"timer_end,omitempty"`
}

type InitEvent struct {
	Type      string      `json:"type"`
	Room      RoomPayload `json:"room"`
	Users     []UserInfo  `json:"users"`
	YourColor string      `json:"your_color"`
}

type StrokeEvent struct {
	Type   string        `json:"type"`
	Stroke domain.Stroke `json:"stroke"`
}

type RemoveStrokeEvent struct {
	Type     string `json:"type"`
	StrokeID string `json:"stroke_id"`
}

type UserEvent struct {
	Type     string     `json:"type"`
	UserID   string     `json:"user_id"`
	Nickname string     `json:"nickname"`
	Users    []UserInfo `json:"users"`
}

type CursorEvent struct {
	Type   string  `json:"type"`
	UserID string  `json:"user_id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type LayerAddedEvent struct {
	Type  string       `json:"type"`
	Layer domain.Layer `json:"layer"`
}

type LayerClearedEvent struct {
	Type    string `json:"type"`
	LayerID string `json:"layer_id"`
}

type ChatEvent struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

type ReactionEvent struct {
	Type   string  `json:"type"`
	UserID string  `json:"user_id"`
	Emoji  string  `json:"emoji"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type TimerStartedEvent struct {
	Type   string  `json:"type"`
	EndsAt float64 `json:"ends_at"`
}

type TimerStoppedEvent struct {
	Type string `json:"type"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Encode serializes an outbound event.
func Encode(event any) ([]byte, error) {
	return json.Marshal(event)
}
