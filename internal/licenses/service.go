package licenses

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

// Result statuses.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusValid     = "valid"
	StatusRedeemed  = "redeemed"
)

// Result is the outcome of validating one key. Exactly one of License,
// Subscription or Promo is set.
type Result struct {
	Kind            string
	Valid           bool
	Status          string
	Tier            enums.LicenseTier
	DaysRemaining   int
	FirstActivation bool

	License      *models.LicenseKey
	Subscription *models.PremiumSubscription
	Promo        *models.PremiumSubscriptionKey
}

// ActivationMeta is recorded on a standard key's first activation.
type ActivationMeta struct {
	IPAddress string
}

// ServiceParams wires the resolver.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Clock  func() time.Time
}

// Service resolves keys against stored licenses, subscriptions and promo keys.
type Service struct {
	repo  Repository
	logg  *logger.Logger
	clock func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "license repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{repo: params.Repo, logg: params.Logger, clock: clock}, nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// Validate resolves key and applies its side effects: a standard key is
// activated on first use, and a lapsed subscription is persisted as expired.
func (s *Service) Validate(ctx context.Context, key KeyKind, meta ActivationMeta) (*Result, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{"key_kind": KindName(key)})
	switch k := key.(type) {
	case Standard:
		return s.validateStandard(ctx, k, meta)
	case PromoKey:
		return s.validatePromo(ctx, k)
	case SubscriptionID:
		return s.validateSubscription(ctx, k)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInvalidFormat, "invalid license key format")
	}
}

func (s *Service) validateStandard(ctx context.Context, key Standard, meta ActivationMeta) (*Result, error) {
	license, err := s.repo.FindLicense(ctx, key.Value())
	if err != nil {
		return nil, s.storageError(ctx, err, "load license")
	}
	if license == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "license key not found")
	}

	result := &Result{
		Kind:    KindName(key),
		Valid:   true,
		Status:  StatusActive,
		Tier:    enums.LicenseTierStandard,
		License: license,
	}
	if license.Activated {
		return result, nil
	}

	now := s.now()
	var ip *string
	if trimmed := strings.TrimSpace(meta.IPAddress); trimmed != "" {
		ip = &trimmed
	}
	activated, err := s.repo.ActivateLicense(ctx, license.ID, now, ip)
	if err != nil {
		return nil, s.storageError(ctx, err, "activate license")
	}
	if activated {
		license.Activated = true
		license.ActivationDate = &now
		license.IPAddress = ip
		result.FirstActivation = true
		s.logg.Info(s.logg.WithLicenseKey(ctx, key.Value()), "license activated")
	}
	return result, nil
}

func (s *Service) validatePromo(ctx context.Context, key PromoKey) (*Result, error) {
	promo, err := s.repo.FindPromoKey(ctx, key.Value())
	if err != nil {
		return nil, s.storageError(ctx, err, "load promo key")
	}
	if promo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "premium key not found")
	}
	status := StatusValid
	if promo.RedeemedAt != nil {
		status = StatusRedeemed
	}
	return &Result{
		Kind:   KindName(key),
		Valid:  true,
		Status: status,
		Tier:   enums.LicenseTierPremium,
		Promo:  promo,
	}, nil
}

func (s *Service) validateSubscription(ctx context.Context, id SubscriptionID) (*Result, error) {
	sub, err := s.repo.FindSubscription(ctx, id.Value())
	if err != nil {
		return nil, s.storageError(ctx, err, "load subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	now := s.now()
	result := &Result{
		Kind:         KindName(id),
		Tier:         enums.LicenseTierPremium,
		Subscription: sub,
	}
	if isCurrent(sub, now) {
		result.Valid = true
		result.Status = string(sub.Status)
		result.DaysRemaining = DaysRemaining(sub.EndDate, now)
		return result, nil
	}

	result.Status = StatusExpired
	if sub.Status != enums.SubscriptionStatusExpired {
		if err := s.repo.MarkSubscriptionExpired(ctx, sub.ID); err != nil {
			return nil, s.storageError(ctx, err, "expire subscription")
		}
		sub.Status = enums.SubscriptionStatusExpired
		s.logg.Info(s.logg.WithField(ctx, "subscription_id", sub.SubscriptionID), "subscription expired on read")
	}
	return result, nil
}

// TierFor resolves the entitlement behind a license key without side effects.
// A redeemed promo key is premium only while its subscription is current.
func (s *Service) TierFor(ctx context.Context, rawKey string) (enums.LicenseTier, error) {
	key, err := ParseLicenseKey(rawKey)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid license key")
	}

	switch k := key.(type) {
	case Standard:
		license, err := s.repo.FindLicense(ctx, k.Value())
		if err != nil {
			return "", s.storageError(ctx, err, "load license")
		}
		if license == nil {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid license key")
		}
		return enums.LicenseTierStandard, nil
	case PromoKey:
		promo, err := s.repo.FindPromoKey(ctx, k.Value())
		if err != nil {
			return "", s.storageError(ctx, err, "load promo key")
		}
		if promo == nil {
			return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid license key")
		}
		if promo.RedeemedAt == nil || promo.SubscriptionID == nil {
			return enums.LicenseTierPremium, nil
		}
		sub, err := s.repo.FindSubscription(ctx, *promo.SubscriptionID)
		if err != nil {
			return "", s.storageError(ctx, err, "load subscription")
		}
		if sub == nil || !isCurrent(sub, s.now()) {
			return "", pkgerrors.New(pkgerrors.CodeExpired, "premium subscription has expired")
		}
		return enums.LicenseTierPremium, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid license key")
	}
}

// ExpireLapsed is the sweep counterpart of the lazy expiry in Validate.
func (s *Service) ExpireLapsed(ctx context.Context) (int64, error) {
	n, err := s.repo.ExpireLapsedSubscriptions(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "expire lapsed subscriptions")
	}
	return n, nil
}

func (s *Service) storageError(ctx context.Context, err error, op string) error {
	s.logg.Error(s.logg.WithField(ctx, "op", op), "license storage failure", err)
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, op)
}

func isCurrent(sub *models.PremiumSubscription, now time.Time) bool {
	switch sub.Status {
	case enums.SubscriptionStatusActive, enums.SubscriptionStatusCancelled:
		return sub.EndDate.After(now)
	default:
		return false
	}
}

// DaysRemaining rounds the time left up to whole days; zero once lapsed.
func DaysRemaining(end, now time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}
