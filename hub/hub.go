package hub

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/denmalbas007/draw-together/domain"
	"github.com/denmalbas007/draw-together/protocol"
)

// ErrWrongPassword rejects a connect attempt against a protected room.
var ErrWrongPassword = errors.New("wrong password")

// palette of display colors, cycled by occupancy at join time.
var palette = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c", "#008080",
}

type session struct {
	conn  domain.Connection
	color string
}

// room pairs the authoritative state with the connected sessions. mu guards
// both and is held across mutate+fanout, so the broadcast order of a room's
// events equals the order its mutations were applied. sessions keeps join
// order. state is nil until the first Connect has run the store load under
// mu; it is never nil once a session has joined.
type room struct {
	mu       sync.Mutex
	state    *domain.Room
	sessions []*session
	index    map[string]*session
}

// Hub owns every in-memory room: it is the session registry and the broadcast
// dispatcher. Rooms are created lazily on first connect (after a load attempt
// against the store) and stay resident until process shutdown.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*room
	store domain.RoomStore
}

func New(store domain.RoomStore) *Hub {
	return &Hub{
		rooms: make(map[string]*room),
		store: store,
	}
}

// Connect joins a connection to its room, lazily materializing the room from
// the store. The first connector's password arms protection; later joins must
// match or the connect fails after an error event is delivered.
func (h *Hub) Connect(conn domain.Connection, password string) error {
	r, created := h.getOrCreateRoom(conn.Room())

	r.mu.Lock()
	defer r.mu.Unlock()

	h.ensureLoadedLocked(r, conn.Room())

	if created && password != "" {
		r.state.Password = password
	}
	if r.state.Password != "" && password != r.state.Password {
		h.sendEvent(conn, protocol.ErrorEvent{Type: protocol.TypeError, Message: "wrong password"})
		slog.Warn("connect rejected", "room", conn.Room(), "userId", conn.UserID())
		return ErrWrongPassword
	}

	sess := &session{conn: conn, color: palette[len(r.sessions)%len(palette)]}
	r.sessions = append(r.sessions, sess)
	r.index[conn.UserID()] = sess
	r.state.TotalJoins++

	users := r.usersLocked()
	h.broadcastLocked(r, protocol.UserEvent{
		Type:     protocol.TypeUserJoined,
		UserID:   conn.UserID(),
		Nickname: conn.Nickname(),
		Users:    users,
	}, conn.UserID())

	snap := r.state.Snapshot()
	h.sendEvent(conn, protocol.InitEvent{
		Type: protocol.TypeInit,
		Room: protocol.RoomPayload{
			ID:          r.state.ID,
			Name:        r.state.Name,
			Layers:      snap.Layers,
			Strokes:     snap.Strokes,
			HasPassword: r.state.Password != "",
			TimerEnd:    r.state.TimerEnd,
		},
		Users:     users,
		YourColor: sess.color,
	})

	slog.Info("client connected", "room", conn.Room(), "userId", conn.UserID(), "nickname", conn.Nickname(), "clients", len(r.sessions))
	return nil
}

// Disconnect removes the session, notifies the remaining members and
// autosaves when the room empties. Removing an absent session is a no-op.
func (h *Hub) Disconnect(conn domain.Connection) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[conn.UserID()]; !ok {
		return
	}
	r.removeSessionLocked(conn.UserID())
	slog.Info("client disconnected", "room", conn.Room(), "userId", conn.UserID(), "clients", len(r.sessions))

	if len(r.sessions) == 0 {
		h.autosaveLocked(r)
		return
	}
	h.broadcastLocked(r, protocol.UserEvent{
		Type:     protocol.TypeUserLeft,
		UserID:   conn.UserID(),
		Nickname: conn.Nickname(),
		Users:    r.usersLocked(),
	}, "")
}

// Users lists a room's members in join order.
func (h *Hub) Users(roomID string) []protocol.UserInfo {
	r := h.getRoom(roomID)
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usersLocked()
}

// AddStroke appends the stroke (server timestamp, id rewritten if untrusted)
// and broadcasts it to everyone except the author.
func (h *Hub) AddStroke(conn domain.Connection, stroke domain.Stroke) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stroke.UserID = conn.UserID()
	applied := r.state.AddStroke(stroke)
	h.broadcastLocked(r, protocol.StrokeEvent{Type: protocol.TypeStroke, Stroke: applied}, conn.UserID())
}

// UndoLast removes the caller's most recent stroke. When the caller has no
// remaining strokes nothing is removed and nothing is broadcast.
func (h *Hub) UndoLast(conn domain.Connection) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.state.UndoLastFor(conn.UserID())
	if removed == nil {
		return
	}
	h.broadcastLocked(r, protocol.RemoveStrokeEvent{Type: protocol.TypeRemoveStroke, StrokeID: removed.ID}, "")
}

func (h *Hub) AddLayer(conn domain.Connection, id, name string) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	layer := r.state.AddLayer(id, name)
	h.broadcastLocked(r, protocol.LayerAddedEvent{Type: protocol.TypeLayerAdded, Layer: layer}, "")
}

func (h *Hub) ClearLayer(conn domain.Connection, layerID string) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.ClearLayer(layerID)
	h.broadcastLocked(r, protocol.LayerClearedEvent{Type: protocol.TypeLayerCleared, LayerID: layerID}, "")
}

// MoveCursor echoes a cursor position to the other members. No state changes.
func (h *Hub) MoveCursor(conn domain.Connection, x, y float64) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	h.broadcastLocked(r, protocol.CursorEvent{
		Type:   protocol.TypeCursor,
		UserID: conn.UserID(),
		X:      x,
		Y:      y,
	}, conn.UserID())
}

func (h *Hub) AppendChat(conn domain.Connection, text string) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := r.state.AppendChat(conn.UserID(), conn.Nickname(), text)
	h.broadcastLocked(r, protocol.ChatEvent{Type: protocol.TypeChat, Message: msg}, "")
}

func (h *Hub) SendReaction(conn domain.Connection, emoji string, x, y float64) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	h.broadcastLocked(r, protocol.ReactionEvent{
		Type:   protocol.TypeReaction,
		UserID: conn.UserID(),
		Emoji:  emoji,
		X:      x,
		Y:      y,
	}, conn.UserID())
}

func (h *Hub) StartTimer(conn domain.Connection, duration float64) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	endsAt := r.state.StartTimer(duration)
	h.broadcastLocked(r, protocol.TimerStartedEvent{Type: protocol.TypeTimerStarted, EndsAt: endsAt}, "")
}

func (h *Hub) StopTimer(conn domain.Connection) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.StopTimer()
	h.broadcastLocked(r, protocol.TimerStoppedEvent{Type: protocol.TypeTimerStopped}, "")
}

// SaveThumbnail stores the opaque data URL on the room; it is persisted with
// the next save.
func (h *Hub) SaveThumbnail(conn domain.Connection, imageData string) {
	r := h.getRoom(conn.Room())
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Thumbnail = imageData
}

// SaveRoom persists a resident room on demand. A storage failure is returned
// to the caller; the in-memory room is untouched either way.
func (h *Hub) SaveRoom(roomID string) error {
	r := h.getRoom(roomID)
	if r == nil {
		return domain.ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return domain.ErrRoomNotFound
	}
	return h.store.Save(r.state)
}

// Stats reports how many rooms are resident and how many clients are
// connected across them.
func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		r.mu.Lock()
		clients += len(r.sessions)
		r.mu.Unlock()
	}
	return rooms, clients
}

// RoomStats reports per-room counters for the stats endpoint.
func (h *Hub) RoomStats(roomID string) (domain.RoomStats, error) {
	r := h.getRoom(roomID)
	if r == nil {
		return domain.RoomStats{}, domain.ErrRoomNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return domain.RoomStats{}, domain.ErrRoomNotFound
	}

	return domain.RoomStats{
		RoomID:           roomID,
		TotalStrokes:     len(r.state.Strokes),
		TotalUsersJoined: r.state.TotalJoins,
		ActiveUsers:      len(r.sessions),
		LayerCount:       len(r.state.Layers),
	}, nil
}

func (h *Hub) getRoom(roomID string) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomID]
}

// getOrCreateRoom materializes the map entry only; the store load happens
// later under the room's own lock so one room's first-join I/O never stalls
// the map lock that every other room's operations pass through. created
// reports whether this call brought the room into memory.
func (h *Hub) getOrCreateRoom(roomID string) (r *room, created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if r, ok := h.rooms[roomID]; ok {
		return r, false
	}

	r = &room{index: make(map[string]*session)}
	h.rooms[roomID] = r
	return r, true
}

// ensureLoadedLocked runs the one-time store load for a freshly materialized
// room, falling back to an empty room on a miss or a storage failure. Caller
// holds r.mu; concurrent first joins serialize here, and only the first one
// touches the store.
func (h *Hub) ensureLoadedLocked(r *room, roomID string) {
	if r.state != nil {
		return
	}
	state, err := h.store.Load(roomID)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			slog.Error("room load failed, starting empty", "room", roomID, "error", err)
		}
		state = domain.NewRoom(roomID)
	}
	r.state = state
}

// broadcastLocked fans an event out to every session except excludeUserID.
// A session whose Send fails is evicted and announced to the survivors; the
// delivery to everyone else proceeds. Caller holds r.mu.
func (h *Hub) broadcastLocked(r *room, event any, excludeUserID string) {
	data, err := protocol.Encode(event)
	if err != nil {
		slog.Error("encode event failed", "room", r.state.ID, "error", err)
		return
	}

	var dead []*session
	for _, sess := range r.sessions {
		if sess.conn.UserID() == excludeUserID {
			continue
		}
		if err := sess.conn.Send(data); err != nil {
			dead = append(dead, sess)
		}
	}
	for _, sess := range dead {
		h.evictLocked(r, sess)
	}
}

// evictLocked treats a session whose socket went bad as disconnected: remove,
// close, tell the survivors, autosave if that emptied the room.
func (h *Hub) evictLocked(r *room, sess *session) {
	userID := sess.conn.UserID()
	if _, ok := r.index[userID]; !ok {
		return
	}
	r.removeSessionLocked(userID)
	sess.conn.Close()
	slog.Warn("evicting unresponsive client", "room", r.state.ID, "userId", userID)

	if len(r.sessions) == 0 {
		h.autosaveLocked(r)
		return
	}
	h.broadcastLocked(r, protocol.UserEvent{
		Type:     protocol.TypeUserLeft,
		UserID:   userID,
		Nickname: sess.conn.Nickname(),
		Users:    r.usersLocked(),
	}, "")
}

func (h *Hub) autosaveLocked(r *room) {
	if err := h.store.Save(r.state); err != nil {
		slog.Error("autosave failed", "room", r.state.ID, "error", err)
	}
}

func (h *Hub) sendEvent(conn domain.Connection, event any) {
	data, err := protocol.Encode(event)
	if err != nil {
		slog.Error("encode event failed", "error", err)
		return
	}
	if err := conn.Send(data); err != nil {
		slog.Warn("direct send failed", "room", conn.Room(), "userId", conn.UserID(), "error", err)
	}
}

func (r *room) usersLocked() []protocol.UserInfo {
	users := make([]protocol.UserInfo, 0, len(r.sessions))
	for _, sess := range r.sessions {
		users = append(users, protocol.UserInfo{
			ID:       sess.conn.UserID(),
			Nickname: sess.conn.Nickname(),
			Color:    sess.color,
		})
	}
	return users
}

func (r *room) removeSessionLocked(userID string) {
	delete(r.index, userID)
	for i, sess := range r.sessions {
		if sess.conn.UserID() == userID {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return
		}
	}
}
