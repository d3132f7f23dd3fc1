package usage

import (
	"context"
	"time"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
	"github.com/ledgerdesk/portal-backend/pkg/metrics"
)

const defaultPremiumLimit = 500

// Status is the quota position of one license for the current month.
type Status struct {
	ScanCount    int       `json:"scan_count"`
	MonthlyLimit int       `json:"monthly_limit"`
	Remaining    int       `json:"remaining"`
	CanScan      bool      `json:"can_scan"`
	UsageMonth   time.Time `json:"-"`
	ResetsAt     time.Time `json:"-"`
}

type ServiceParams struct {
	Repo         Repository
	Logger       *logger.Logger
	Metrics      *metrics.QuotaMetrics
	MonthlyLimit int
	Clock        func() time.Time
}

// Service tracks premium receipt scans. Callers must reject non-premium keys
// before reaching it.
type Service struct {
	repo    Repository
	logg    *logger.Logger
	metrics *metrics.QuotaMetrics
	limit   int
	clock   func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "usage repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	limit := params.MonthlyLimit
	if limit <= 0 {
		limit = defaultPremiumLimit
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:    params.Repo,
		logg:    params.Logger,
		metrics: params.Metrics,
		limit:   limit,
		clock:   clock,
	}, nil
}

// MonthStart normalizes t to 00:00 UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Check returns the current month's status, creating the row on first use.
func (s *Service) Check(ctx context.Context, licenseKey string) (*Status, error) {
	month := MonthStart(s.clock())
	row, err := s.repo.GetOrCreate(ctx, licenseKey, month, s.limit)
	if err != nil {
		return nil, s.storageError(ctx, err, "load usage")
	}
	return statusFrom(row, month), nil
}

// Increment records one scan. At the limit it fails with QUOTA_EXCEEDED and
// carries the unchanged status as details.
func (s *Service) Increment(ctx context.Context, licenseKey string) (*Status, error) {
	month := MonthStart(s.clock())
	if _, err := s.repo.GetOrCreate(ctx, licenseKey, month, s.limit); err != nil {
		return nil, s.storageError(ctx, err, "load usage")
	}

	incremented, err := s.repo.IncrementIfBelowLimit(ctx, licenseKey, month)
	if err != nil {
		return nil, s.storageError(ctx, err, "increment usage")
	}

	row, err := s.repo.GetOrCreate(ctx, licenseKey, month, s.limit)
	if err != nil {
		return nil, s.storageError(ctx, err, "reload usage")
	}
	status := statusFrom(row, month)

	if !incremented {
		s.metrics.IncExceeded()
		s.logg.Info(s.logg.WithLicenseKey(ctx, licenseKey), "receipt scan quota exceeded")
		return status, pkgerrors.New(pkgerrors.CodeQuotaExceeded, "monthly receipt scan limit reached").WithDetails(status)
	}
	s.metrics.IncScan()
	return status, nil
}

func (s *Service) storageError(ctx context.Context, err error, op string) error {
	s.logg.Error(s.logg.WithField(ctx, "op", op), "usage storage failure", err)
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, op)
}

func statusFrom(row *models.ReceiptScanUsage, month time.Time) *Status {
	remaining := row.MonthlyLimit - row.ScanCount
	if remaining < 0 {
		remaining = 0
	}
	return &Status{
		ScanCount:    row.ScanCount,
		MonthlyLimit: row.MonthlyLimit,
		Remaining:    remaining,
		CanScan:      remaining > 0,
		UsageMonth:   month,
		ResetsAt:     month.AddDate(0, 1, 0),
	}
}
