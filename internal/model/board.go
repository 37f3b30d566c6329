package model

import (
	"time"

	"github.com/google/uuid"
)

// Board is a titled container of tasks. OwnerID never changes after creation.
type Board struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Title     string    `gorm:"not null"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Owner User   `gorm:"foreignKey:OwnerID"`
	Tasks []Task `gorm:"foreignKey:BoardID;constraint:OnDelete:CASCADE"`
}

type BoardResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	OwnerID string `json:"ownerId"`
}

func (b *Board) Response() BoardResponse {
	return BoardResponse{
		ID:      b.ID.String(),
		Title:   b.Title,
		OwnerID: b.OwnerID.String(),
	}
}
