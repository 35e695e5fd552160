package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom_DefaultLayer(t *testing.T) {
	r := NewRoom("r1")

	require.Len(t, r.Layers, 1)
	assert.Equal(t, DefaultLayerID, r.Layers[0].ID)
	assert.Equal(t, DefaultLayerName, r.Layers[0].Name)
	assert.True(t, r.Layers[0].Visible)
	assert.Equal(t, 0, r.Layers[0].Order)
	assert.Empty(t, r.Strokes)
	assert.Greater(t, r.CreatedAt, 0.0)
}

func TestRoom_AddStroke(t *testing.T) {
	r := NewRoom("r1")

	applied := r.AddStroke(Stroke{
		ID:      "s1",
		UserID:  "u1",
		Points:  []Point{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Color:   "#000000",
		Size:    5,
		LayerID: DefaultLayerID,
	})

	require.Len(t, r.Strokes, 1)
	assert.Equal(t, "s1", applied.ID)
	assert.Equal(t, "brush", applied.Tool)
	assert.Greater(t, applied.Timestamp, 0.0)
}

func TestRoom_AddStroke_ServerTimestampOverridesClient(t *testing.T) {
	r := NewRoom("r1")

	applied := r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 0, Y: 0}}, Timestamp: 1.0})

	assert.NotEqual(t, 1.0, applied.Timestamp)
}

func TestRoom_AddStroke_MonotonicTimestamps(t *testing.T) {
	r := NewRoom("r1")

	var last float64
	for i := 0; i < 100; i++ {
		s := r.AddStroke(Stroke{UserID: "u1", Points: []Point{{X: 0, Y: 0}}})
		assert.Greater(t, s.Timestamp, last)
		last = s.Timestamp
	}
}

func TestRoom_AddStroke_RewritesUntrustedIDs(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
	}{
		{name: "empty id", clientID: ""},
		{name: "colliding id", clientID: "s1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoom("r1")
			r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 0, Y: 0}}})

			applied := r.AddStroke(Stroke{ID: tt.clientID, UserID: "u2", Points: []Point{{X: 1, Y: 1}}})

			assert.NotEmpty(t, applied.ID)
			assert.NotEqual(t, "s1", applied.ID)
		})
	}
}

func TestRoom_AddStroke_RemovedIDNeverReused(t *testing.T) {
	r := NewRoom("r1")
	r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 0, Y: 0}}})

	removed := r.UndoLastFor("u1")
	require.NotNil(t, removed)
	require.Equal(t, "s1", removed.ID)

	applied := r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 0, Y: 0}}})
	assert.NotEqual(t, "s1", applied.ID)
}

func TestRoom_UndoLastFor(t *testing.T) {
	tests := []struct {
		name        string
		strokes     []Stroke
		undoUser    string
		wantRemoved string
		wantLeft    []string
	}{
		{
			name: "removes most recent stroke of the requesting user",
			strokes: []Stroke{
				{ID: "s1", UserID: "u1"},
				{ID: "s2", UserID: "u2"},
				{ID: "s3", UserID: "u1"},
			},
			undoUser:    "u1",
			wantRemoved: "s3",
			wantLeft:    []string{"s1", "s2"},
		},
		{
			name: "skips later strokes by other users",
			strokes: []Stroke{
				{ID: "s1", UserID: "u1"},
				{ID: "s2", UserID: "u2"},
			},
			undoUser:    "u1",
			wantRemoved: "s1",
			wantLeft:    []string{"s2"},
		},
		{
			name: "no-op when user has no strokes",
			strokes: []Stroke{
				{ID: "s1", UserID: "u1"},
			},
			undoUser:    "u2",
			wantRemoved: "",
			wantLeft:    []string{"s1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoom("r1")
			for _, s := range tt.strokes {
				s.Points = []Point{{X: 0, Y: 0}}
				r.AddStroke(s)
			}

			removed := r.UndoLastFor(tt.undoUser)

			if tt.wantRemoved == "" {
				assert.Nil(t, removed)
			} else {
				require.NotNil(t, removed)
				assert.Equal(t, tt.wantRemoved, removed.ID)
			}

			var left []string
			for _, s := range r.Strokes {
				left = append(left, s.ID)
			}
			assert.Equal(t, tt.wantLeft, left)
		})
	}
}

func TestRoom_AddLayer(t *testing.T) {
	r := NewRoom("r1")

	layer := r.AddLayer("layer_bg", "Foreground")

	assert.Equal(t, "layer_bg", layer.ID)
	assert.Equal(t, "Foreground", layer.Name)
	assert.True(t, layer.Visible)
	assert.Equal(t, 1, layer.Order)
	assert.Len(t, r.Layers, 2)
}

func TestRoom_AddLayer_GeneratesMissingID(t *testing.T) {
	r := NewRoom("r1")

	layer := r.AddLayer("", "")

	assert.True(t, strings.HasPrefix(layer.ID, "layer_"))
	assert.NotEqual(t, DefaultLayerID, layer.ID)
	assert.Equal(t, "New Layer", layer.Name)
}

func TestRoom_ClearLayer(t *testing.T) {
	r := NewRoom("r1")
	r.AddLayer("layer_1", "Top")
	r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 0, Y: 0}}, LayerID: "layer_0"})
	r.AddStroke(Stroke{ID: "s2", UserID: "u1", Points: []Point{{X: 0, Y: 0}}, LayerID: "layer_1"})
	r.AddStroke(Stroke{ID: "s3", UserID: "u1", Points: []Point{{X: 0, Y: 0}}, LayerID: "layer_0"})

	r.ClearLayer("layer_0")

	require.Len(t, r.Strokes, 1)
	assert.Equal(t, "s2", r.Strokes[0].ID)
	assert.Len(t, r.Layers, 2, "layer object must survive a clear")
}

func TestRoom_AppendChat_TruncatesLongMessages(t *testing.T) {
	r := NewRoom("r1")

	msg := r.AppendChat("u1", "Ann", strings.Repeat("A", 1000))

	assert.Len(t, []rune(msg.Text), 500)
	require.Len(t, r.Chat, 1)
	assert.Equal(t, "Ann", r.Chat[0].Nickname)
}

func TestRoom_StartTimer(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		wantMax  float64
		wantMin  float64
	}{
		{name: "normal duration", duration: 300, wantMin: 299, wantMax: 301},
		{name: "capped at one hour", duration: 7200, wantMin: 3599, wantMax: 3601},
		{name: "default when unset", duration: 0, wantMin: 299, wantMax: 301},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRoom("r1")

			endsAt := r.StartTimer(tt.duration)

			remaining := endsAt - nowUnix()
			assert.GreaterOrEqual(t, remaining, tt.wantMin)
			assert.LessOrEqual(t, remaining, tt.wantMax)
			assert.Equal(t, endsAt, r.TimerEnd)
		})
	}
}

func TestRoom_StopTimer(t *testing.T) {
	r := NewRoom("r1")
	r.StartTimer(300)

	r.StopTimer()

	assert.Zero(t, r.TimerEnd)
}

func TestRoom_SnapshotRestore_RoundTrip(t *testing.T) {
	r := NewRoom("r1")
	r.AddLayer("layer_1", "Top")
	r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 1, Y: 2}}, Color: "#ff0000", Size: 3, LayerID: "layer_0", Tool: "line"})
	r.AddStroke(Stroke{ID: "s2", UserID: "u2", Points: []Point{{X: 3, Y: 4}}, Color: "#00ff00", Size: 1, LayerID: "layer_1"})

	restored := RestoreRoom(r.ID, r.Name, r.Snapshot(), r.CreatedAt)

	assert.Equal(t, r.Layers, restored.Layers)
	assert.Equal(t, r.Strokes, restored.Strokes)
	assert.Equal(t, r.CreatedAt, restored.CreatedAt)

	// restored rooms keep rejecting ids that were used before the save
	applied := restored.AddStroke(Stroke{ID: "s1", UserID: "u3", Points: []Point{{X: 0, Y: 0}}})
	assert.NotEqual(t, "s1", applied.ID)

	// and their timestamps stay ahead of the loaded strokes
	assert.Greater(t, applied.Timestamp, r.Strokes[1].Timestamp)
}

func TestRoom_Snapshot_Detached(t *testing.T) {
	r := NewRoom("r1")
	r.AddStroke(Stroke{ID: "s1", UserID: "u1", Points: []Point{{X: 0, Y: 0}}})

	snap := r.Snapshot()
	r.AddStroke(Stroke{ID: "s2", UserID: "u1", Points: []Point{{X: 1, Y: 1}}})

	assert.Len(t, snap.Strokes, 1)
}

func TestRestoreRoom_EmptySnapshotGetsDefaultLayer(t *testing.T) {
	restored := RestoreRoom("r1", "r1", Snapshot{}, 100)

	require.Len(t, restored.Layers, 1)
	assert.Equal(t, DefaultLayerID, restored.Layers[0].ID)
	assert.NotNil(t, restored.Strokes)
}
