package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/pkg/enums"
)

// PremiumSubscription is a recurring premium entitlement.
type PremiumSubscription struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	SubscriptionID string                   `gorm:"column:subscription_id;not null;uniqueIndex"`
	UserID         *string                  `gorm:"column:user_id"`
	Email          string                   `gorm:"column:email;not null"`
	BillingCycle   enums.BillingCycle       `gorm:"column:billing_cycle;type:billing_cycle;not null;default:'monthly'"`
	Status         enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	StartDate      time.Time                `gorm:"column:start_date;not null"`
	EndDate        time.Time                `gorm:"column:end_date;not null;index"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (PremiumSubscription) TableName() string { return "premium_subscriptions" }

func (s *PremiumSubscription) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// PremiumSubscriptionKey is an operator-issued promo key (PREM- prefix) that
// converts into a PremiumSubscription once redeemed.
type PremiumSubscriptionKey struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	SubscriptionKey  string     `gorm:"column:subscription_key;not null;uniqueIndex"`
	Email            *string    `gorm:"column:email"`
	DurationMonths   int        `gorm:"column:duration_months;not null;default:1"`
	RedeemedAt       *time.Time `gorm:"column:redeemed_at"`
	RedeemedByUserID *string    `gorm:"column:redeemed_by_user_id"`
	SubscriptionID   *string    `gorm:"column:subscription_id"`
	Notes            *string    `gorm:"column:notes"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (PremiumSubscriptionKey) TableName() string { return "premium_subscription_keys" }

func (k *PremiumSubscriptionKey) BeforeCreate(_ *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
