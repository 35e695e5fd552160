package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLayerID   = "layer_0"
	DefaultLayerName = "Background"

	maxChatLength   = 500
	defaultTimerSec = 300
	maxTimerSec     = 3600
)

// Room is the authoritative in-memory state of one drawing room. It is pure
// data: no I/O and no locking. Callers (the hub) serialize access per room.
type Room struct {
	ID        string
	Name      string
	Layers    []Layer
	Strokes   []Stroke
	Chat      []ChatMessage
	TimerEnd  float64
	Password  string
	Thumbnail string
	CreatedAt float64
	UpdatedAt float64

	// TotalJoins counts sessions over the room's in-memory lifetime,
	// surfaced by the stats endpoint.
	TotalJoins int

	// usedStrokeIDs covers the room's whole lifetime so a removed stroke's
	// id is never reused.
	usedStrokeIDs map[string]struct{}
	lastTimestamp float64
}

// NewRoom constructs an empty room with the implicit default layer.
func NewRoom(id string) *Room {
	now := nowUnix()
	return &Room{
		ID:        id,
		Name:      id,
		Layers:    []Layer{{ID: DefaultLayerID, Name: DefaultLayerName, Visible: true, Order: 0}},
		Strokes:   []Stroke{},
		CreatedAt: now,
		UpdatedAt: now,

		usedStrokeIDs: make(map[string]struct{}),
	}
}

// RestoreRoom rebuilds a room from a durable snapshot, re-seeding the used-id
// set and the timestamp watermark from the loaded strokes.
func RestoreRoom(id, name string, snap Snapshot, createdAt float64) *Room {
	r := &Room{
		ID:        id,
		Name:      name,
		Layers:    snap.Layers,
		Strokes:   snap.Strokes,
		CreatedAt: createdAt,
		UpdatedAt: nowUnix(),

		usedStrokeIDs: make(map[string]struct{}, len(snap.Strokes)),
	}
	if len(r.Layers) == 0 {
		r.Layers = []Layer{{ID: DefaultLayerID, Name: DefaultLayerName, Visible: true, Order: 0}}
	}
	if r.Strokes == nil {
		r.Strokes = []Stroke{}
	}
	for _, s := range r.Strokes {
		r.usedStrokeIDs[s.ID] = struct{}{}
		if s.Timestamp > r.lastTimestamp {
			r.lastTimestamp = s.Timestamp
		}
	}
	return r
}

// AddStroke appends a stroke to the log, overriding the client timestamp with
// a server-assigned monotonic one. A missing or already-used client id is
// rewritten with a fresh uuid rather than trusted.
func (r *Room) AddStroke(stroke Stroke) Stroke {
	if stroke.ID == "" {
		stroke.ID = uuid.New().String()
	} else if _, taken := r.usedStrokeIDs[stroke.ID]; taken {
		stroke.ID = uuid.New().String()
	}
	if stroke.Tool == "" {
		stroke.Tool = "brush"
	}
	stroke.Timestamp = r.nextTimestamp()
	r.usedStrokeIDs[stroke.ID] = struct{}{}
	r.Strokes = append(r.Strokes, stroke)
	r.UpdatedAt = stroke.Timestamp
	return stroke
}

// UndoLastFor removes and returns the most recent stroke authored by userID,
// or nil when the user has no remaining strokes.
func (r *Room) UndoLastFor(userID string) *Stroke {
	for i := len(r.Strokes) - 1; i >= 0; i-- {
		if r.Strokes[i].UserID != userID {
			continue
		}
		removed := r.Strokes[i]
		r.Strokes = append(r.Strokes[:i], r.Strokes[i+1:]...)
		r.UpdatedAt = nowUnix()
		return &removed
	}
	return nil
}

// AddLayer appends a layer with the next display order. The layer id comes
// from the client; an empty one gets a generated id.
func (r *Room) AddLayer(id, name string) Layer {
	if id == "" {
		id = "layer_" + uuid.New().String()[:8]
	}
	if name == "" {
		name = "New Layer"
	}
	layer := Layer{ID: id, Name: name, Visible: true, Order: len(r.Layers)}
	r.Layers = append(r.Layers, layer)
	r.UpdatedAt = nowUnix()
	return layer
}

// ClearLayer removes every stroke on the given layer. The layer itself stays.
func (r *Room) ClearLayer(layerID string) {
	kept := r.Strokes[:0]
	for _, s := range r.Strokes {
		if s.LayerID != layerID {
			kept = append(kept, s)
		}
	}
	r.Strokes = kept
	r.UpdatedAt = nowUnix()
}

// AppendChat records a chat line, truncated to the message length cap.
func (r *Room) AppendChat(userID, nickname, text string) ChatMessage {
	if runes := []rune(text); len(runes) > maxChatLength {
		text = string(runes[:maxChatLength])
	}
	msg := ChatMessage{UserID: userID, Nickname: nickname, Text: text, Timestamp: nowUnix()}
	r.Chat = append(r.Chat, msg)
	return msg
}

// StartTimer sets the room timer and returns its end time. Durations are
// clamped to at most an hour; a non-positive duration falls back to the
// five-minute default.
func (r *Room) StartTimer(duration float64) float64 {
	if duration <= 0 {
		duration = defaultTimerSec
	}
	if duration > maxTimerSec {
		duration = maxTimerSec
	}
	r.TimerEnd = nowUnix() + duration
	return r.TimerEnd
}

func (r *Room) StopTimer() {
	r.TimerEnd = 0
}

// Snapshot returns a detached copy of the serializable room state.
func (r *Room) Snapshot() Snapshot {
	layers := make([]Layer, len(r.Layers))
	copy(layers, r.Layers)
	strokes := make([]Stroke, len(r.Strokes))
	copy(strokes, r.Strokes)
	return Snapshot{Layers: layers, Strokes: strokes}
}

func (r *Room) nextTimestamp() float64 {
	ts := nowUnix()
	if ts <= r.lastTimestamp {
		ts = r.lastTimestamp + 1e-6
	}
	r.lastTimestamp = ts
	return ts
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
