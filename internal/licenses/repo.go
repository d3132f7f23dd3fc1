package licenses

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// Repository exposes license, subscription and promo key persistence. Finders
// return (nil, nil) when no row matches.
type Repository interface {
	FindLicense(ctx context.Context, key string) (*models.LicenseKey, error)
	ActivateLicense(ctx context.Context, id uuid.UUID, at time.Time, ip *string) (bool, error)
	CreateLicense(ctx context.Context, license *models.LicenseKey) error

	FindSubscription(ctx context.Context, subscriptionID string) (*models.PremiumSubscription, error)
	MarkSubscriptionExpired(ctx context.Context, id uuid.UUID) error
	ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error)

	FindPromoKey(ctx context.Context, key string) (*models.PremiumSubscriptionKey, error)
	CreatePromoKey(ctx context.Context, key *models.PremiumSubscriptionKey) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindLicense(ctx context.Context, key string) (*models.LicenseKey, error) {
	var license models.LicenseKey
	err := r.db.WithContext(ctx).Where("license_key = ?", key).First(&license).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &license, nil
}

// ActivateLicense flips activated exactly once; it reports false when another
// request activated the key first.
func (r *repository) ActivateLicense(ctx context.Context, id uuid.UUID, at time.Time, ip *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LicenseKey{}).
		Where("id = ? AND activated = ?", id, false).
		Updates(map[string]any{
			"activated":       true,
			"activation_date": at,
			"ip_address":      ip,
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateLicense(ctx context.Context, license *models.LicenseKey) error {
	return r.db.WithContext(ctx).Create(license).Error
}

func (r *repository) FindSubscription(ctx context.Context, subscriptionID string) (*models.PremiumSubscription, error) {
	var sub models.PremiumSubscription
	err := r.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) MarkSubscriptionExpired(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PremiumSubscription{}).
		Where("id = ? AND status <> ?", id, enums.SubscriptionStatusExpired).
		Update("status", enums.SubscriptionStatusExpired).Error
}

// ExpireLapsedSubscriptions marks every active or cancelled subscription whose
// paid term has ended.
func (r *repository) ExpireLapsedSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PremiumSubscription{}).
		Where("status IN ? AND end_date <= ?", []enums.SubscriptionStatus{
			enums.SubscriptionStatusActive,
			enums.SubscriptionStatusCancelled,
		}, now).
		Update("status", enums.SubscriptionStatusExpired)
	return res.RowsAffected, res.Error
}

func (r *repository) FindPromoKey(ctx context.Context, key string) (*models.PremiumSubscriptionKey, error) {
	var promo models.PremiumSubscriptionKey
	err := r.db.WithContext(ctx).Where("subscription_key = ?", key).First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) CreatePromoKey(ctx context.Context, key *models.PremiumSubscriptionKey) error {
	return r.db.WithContext(ctx).Create(key).Error
}
