package downloads

import (
	"context"
	"strings"

	"github.com/ledgerdesk/portal-backend/pkg/db/models"
	"github.com/ledgerdesk/portal-backend/pkg/enums"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

type eventRepository interface {
	Create(ctx context.Context, event *models.DownloadEvent) error
}

type ServiceParams struct {
	Catalog *Catalog
	Repo    eventRepository
	Logger  *logger.Logger
}

// Service resolves installers and records who downloaded them.
type Service struct {
	catalog *Catalog
	repo    eventRepository
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "installer catalog required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{catalog: params.Catalog, repo: params.Repo, logg: params.Logger}, nil
}

// Resolve finds the requested installer. An empty version selects the newest.
func (s *Service) Resolve(ctx context.Context, rawPlatform, version string) (*Installer, error) {
	platform, err := enums.ParsePlatform(strings.ToLower(strings.TrimSpace(rawPlatform)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "platform must be one of win, mac, linux")
	}
	inst, err := s.catalog.Find(platform, version)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "platform", string(platform)), "installer directory unreadable", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list installers")
	}
	if inst == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "installer not found").
			WithDetails(map[string]any{"platform": string(platform), "version": version})
	}
	return inst, nil
}

// Download describes the client a served installer went to.
type Download struct {
	IPAddress string
	UserAgent string
}

// Track records a download. Failures are logged and never block serving.
func (s *Service) Track(ctx context.Context, inst *Installer, d Download) {
	if s.repo == nil || inst == nil {
		return
	}
	event := &models.DownloadEvent{
		Platform:  inst.Platform,
		Version:   inst.Version,
		FileName:  inst.FileName,
		SizeBytes: inst.Size,
		IPAddress: optional(d.IPAddress),
		UserAgent: optional(truncate(d.UserAgent, 512)),
	}
	if err := s.repo.Create(ctx, event); err != nil {
		s.logg.Error(s.logg.WithField(ctx, "file", inst.FileName), "record download failed", err)
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func truncate(v string, max int) string {
	if len(v) > max {
		return v[:max]
	}
	return v
}
