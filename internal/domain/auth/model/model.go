package model

import (
	"github.com/google/uuid"
	"time"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Identifier   string    `gorm:"size:64;not null;uniqueIndex"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }

// Identity is the verified claim the authorization gate hands to downstream handlers.
type Identity struct {
	Identifier string
	Email      string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
