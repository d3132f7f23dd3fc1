package usage

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
)

// Repository persists monthly receipt scan counters.
type Repository interface {
	GetOrCreate(ctx context.Context, licenseKey string, month time.Time, limit int) (*models.ReceiptScanUsage, error)
	IncrementIfBelowLimit(ctx context.Context, licenseKey string, month time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetOrCreate inserts a zeroed row for the month if none exists and returns
// the stored row. The limit is snapshotted only on creation.
func (r *repository) GetOrCreate(ctx context.Context, licenseKey string, month time.Time, limit int) (*models.ReceiptScanUsage, error) {
	row := &models.ReceiptScanUsage{
		LicenseKey:   licenseKey,
		UsageMonth:   month,
		ScanCount:    0,
		MonthlyLimit: limit,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}

	var stored models.ReceiptScanUsage
	if err := r.db.WithContext(ctx).
		Where("license_key = ? AND usage_month = ?", licenseKey, month).
		First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// IncrementIfBelowLimit adds one scan only while scan_count < monthly_limit.
// It reports whether the row changed.
func (r *repository) IncrementIfBelowLimit(ctx context.Context, licenseKey string, month time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReceiptScanUsage{}).
		Where("license_key = ? AND usage_month = ? AND scan_count < monthly_limit", licenseKey, month).
		Updates(map[string]any{
			"scan_count": gorm.Expr("scan_count + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
