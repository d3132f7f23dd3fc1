package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// DownloadEvent tracks one served installer.
type DownloadEvent struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Platform  enums.Platform `gorm:"column:platform;not null;index"`
	Version   string         `gorm:"column:version;not null"`
	FileName  string         `gorm:"column:file_name;not null"`
	SizeBytes int64          `gorm:"column:size_bytes;not null"`
	IPAddress *string        `gorm:"column:ip_address"`
	UserAgent *string        `gorm:"column:user_agent"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (DownloadEvent) TableName() string { return "download_events" }

func (d *DownloadEvent) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
