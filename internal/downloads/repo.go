package downloads

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
)

// Repository persists download tracking rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, event *models.DownloadEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// DeleteBefore prunes tracking rows older than cutoff.
func (r *Repository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.DownloadEvent{})
	return res.RowsAffected, res.Error
}
