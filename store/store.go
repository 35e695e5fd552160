package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/denmalbas007/draw-together/domain"
)

// RoomRecord is the durable layout: one row per room with the serialized
// {layers, strokes} snapshot as a JSON column.
type RoomRecord struct {
	ID        string         `gorm:"primaryKey"`
	Name      string         `gorm:"not null"`
	Data      datatypes.JSON `gorm:"not null"`
	Thumbnail string
	CreatedAt float64 `gorm:"not null"`
	UpdatedAt float64 `gorm:"not null;index"`
}

func (RoomRecord) TableName() string { return "rooms" }

// Store is the durable storage gateway backed by a sqlite file.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&RoomRecord{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Load deserializes the durable record for roomID, or returns
// domain.ErrRoomNotFound when none exists.
func (s *Store) Load(roomID string) (*domain.Room, error) {
	var rec RoomRecord
	if err := s.db.First(&rec, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(rec.Data, &snap); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}

	room := domain.RestoreRoom(rec.ID, rec.Name, snap, rec.CreatedAt)
	room.Thumbnail = rec.Thumbnail
	slog.Info("room loaded", "room", roomID, "strokes", len(room.Strokes), "layers", len(room.Layers))
	return room, nil
}

// Save upserts the room's durable record. created_at is preserved on update;
// updated_at always moves forward. The caller keeps the in-memory room
// regardless of the outcome, so a failed save can be retried.
func (s *Store) Save(room *domain.Room) error {
	data, err := json.Marshal(room.Snapshot())
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}

	rec := RoomRecord{
		ID:        room.ID,
		Name:      room.Name,
		Data:      datatypes.JSON(data),
		Thumbnail: room.Thumbnail,
		CreatedAt: room.CreatedAt,
		UpdatedAt: float64(time.Now().UnixNano()) / 1e9,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "data", "thumbnail", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save room %s: %w", room.ID, err)
	}
	slog.Info("room saved", "room", room.ID, "strokes", len(room.Strokes))
	return nil
}

// ListRooms returns every saved room, most recently updated first.
func (s *Store) ListRooms() ([]domain.RoomInfo, error) {
	var recs []RoomRecord
	if err := s.db.Select("id", "name", "created_at", "updated_at").
		Order("updated_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}

	rooms := make([]domain.RoomInfo, 0, len(recs))
	for _, rec := range recs {
		rooms = append(rooms, domain.RoomInfo{
			ID:        rec.ID,
			Name:      rec.Name,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return rooms, nil
}
