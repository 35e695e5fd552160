package domain

import "errors"

// ErrRoomNotFound is returned by a RoomStore when no durable record exists
// for the requested room id.
var ErrRoomNotFound = errors.New("room not found")

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Stroke struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Points    []Point `json:"points"`
	Color     string  `json:"color"`
	Size      float64 `json:"size"`
	LayerID   string  `json:"layer_id"`
	Tool      string  `json:"tool"`
	Text      string  `json:"text,omitempty"`
	Timestamp float64 `json:"timestamp"`
}

type Layer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Order   int    `json:"order"`
}

type ChatMessage struct {
	UserID    string  `json:"user_id"`
	Nickname  string  `json:"nickname"`
	Text      string  `json:"text"`
	Timestamp float64 `json:"timestamp"`
}

// Snapshot is the serializable portion of a room, used both for the durable
// record and for init messages.
type Snapshot struct {
	Layers  []Layer  `json:"layers"`
	Strokes []Stroke `json:"strokes"`
}

type RoomInfo struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CreatedAt float64 `json:"created_at"`
	UpdatedAt float64 `json:"updated_at"`
}

type RoomStats struct {
	RoomID           string `json:"room_id"`
	TotalStrokes     int    `json:"total_strokes"`
	TotalUsersJoined int    `json:"total_users_joined"`
	ActiveUsers      int    `json:"active_users"`
	LayerCount       int    `json:"layer_count"`
}

// Connection is one live client socket bound to a (room, user) pair.
type Connection interface {
	UserID() string
	Nickname() string
	Room() string
	Send(data []byte) error
	Close() error
}

// Registry manages session lifecycle: joining a room's broadcast set and
// leaving it. Disconnect is idempotent.
type Registry interface {
	Connect(conn Connection, password string) error
	Disconnect(conn Connection)
}

// RoomHub is the mutation surface the protocol handler dispatches decoded
// messages to. Every method applies its change and broadcasts the resulting
// event atomically with respect to the session's room.
type RoomHub interface {
	AddStroke(conn Connection, stroke Stroke)
	UndoLast(conn Connection)
	AddLayer(conn Connection, id, name string)
	ClearLayer(conn Connection, layerID string)
	MoveCursor(conn Connection, x, y float64)
	AppendChat(conn Connection, text string)
	SendReaction(conn Connection, emoji string, x, y float64)
	StartTimer(conn Connection, duration float64)
	StopTimer(conn Connection)
	SaveThumbnail(conn Connection, imageData string)
}

// MessageHandler consumes raw inbound frames from a connection.
type MessageHandler interface {
	Handle(conn Connection, data []byte)
}

// RoomStore is the durable storage boundary.
type RoomStore interface {
	Load(roomID string) (*Room, error)
	Save(room *Room) error
	ListRooms() ([]RoomInfo, error)
}
