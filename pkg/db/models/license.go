package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LicenseKey is a one-time-purchase standard license (STND- prefix).
type LicenseKey struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Key            string     `gorm:"column:license_key;not null;uniqueIndex"`
	Email          string     `gorm:"column:email;not null"`
	UserID         *string    `gorm:"column:user_id"`
	Activated      bool       `gorm:"column:activated;not null;default:false"`
	ActivationDate *time.Time `gorm:"column:activation_date"`
	IPAddress      *string    `gorm:"column:ip_address"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (LicenseKey) TableName() string { return "license_keys" }

func (l *LicenseKey) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
