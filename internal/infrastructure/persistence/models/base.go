package models

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel provides common persistence fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// CompanyModel is a BaseModel owned by one company
type CompanyModel struct {
	BaseModel
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index"`
}
