package licenses

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledgerdesk/portal-backend/pkg/db"
	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
)

const (
	maxIssueBatch     = 500
	maxPromoMonths    = 120
	issueCollisionTry = 3
)

// IssueKind selects which key family Issue generates.
type IssueKind string

const (
	IssueStandard IssueKind = "standard"
	IssuePromo    IssueKind = "promo"
)

// IssueRequest describes a batch of keys to create. Months and Notes apply to
// promo keys only; standard keys require an email.
type IssueRequest struct {
	Kind   IssueKind
	Email  string
	Months int
	Notes  string
	Count  int
}

// Issue generates and stores Count fresh keys, retrying the rare random
// collision with an existing key.
func (s *Service) Issue(ctx context.Context, req IssueRequest) ([]string, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, req.Count)
	for len(keys) < req.Count {
		key, err := s.issueOne(ctx, req)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"kind":  string(req.Kind),
		"count": len(keys),
	}), "license keys issued")
	return keys, nil
}

func (s *Service) issueOne(ctx context.Context, req IssueRequest) (string, error) {
	for attempt := 0; attempt < issueCollisionTry; attempt++ {
		var (
			key string
			err error
		)
		switch req.Kind {
		case IssueStandard:
			key, err = GenerateKey(StandardPrefix)
			if err == nil {
				err = s.repo.CreateLicense(ctx, &models.LicenseKey{Key: key, Email: req.Email})
			}
		case IssuePromo:
			key, err = GenerateKey(PromoPrefix)
			if err == nil {
				err = s.repo.CreatePromoKey(ctx, req.promoModel(key))
			}
		}
		if err == nil {
			return key, nil
		}
		if db.IsUniqueViolation(err, "") {
			continue
		}
		return "", s.storageError(ctx, err, "issue key")
	}
	return "", pkgerrors.New(pkgerrors.CodeConflict, "could not generate a unique key")
}

func (r IssueRequest) promoModel(key string) *models.PremiumSubscriptionKey {
	promo := &models.PremiumSubscriptionKey{SubscriptionKey: key, DurationMonths: r.Months}
	if email := strings.TrimSpace(r.Email); email != "" {
		promo.Email = &email
	}
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		promo.Notes = &notes
	}
	return promo
}

func (r *IssueRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Count == 0 {
		r.Count = 1
	}
	if r.Count < 0 || r.Count > maxIssueBatch {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("count must be between 1 and %d", maxIssueBatch))
	}
	switch r.Kind {
	case IssueStandard:
		if r.Email == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "email is required for standard keys")
		}
	case IssuePromo:
		if r.Months == 0 {
			r.Months = 1
		}
		if r.Months < 1 || r.Months > maxPromoMonths {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("months must be between 1 and %d", maxPromoMonths))
		}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown key kind %q", r.Kind))
	}
	return nil
}
