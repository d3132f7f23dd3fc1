package controllers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/ledgerdesk/portal-backend/api/middleware"
	"github.com/ledgerdesk/portal-backend/api/responses"
	"github.com/ledgerdesk/portal-backend/api/validators"
	"github.com/ledgerdesk/portal-backend/internal/downloads"
	pkgerrors "github.com/ledgerdesk/portal-backend/pkg/errors"
	"github.com/ledgerdesk/portal-backend/pkg/logger"
)

// InstallerService locates installers and records downloads.
type InstallerService interface {
	Resolve(ctx context.Context, platform, version string) (*downloads.Installer, error)
	Track(ctx context.Context, inst *downloads.Installer, d downloads.Download)
}

// DownloadInstaller streams the requested installer and records the download.
func DownloadInstaller(svc InstallerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "download service unavailable"))
			return
		}

		platform := validators.QueryString(r, "platform", 16)
		version := validators.QueryString(r, "version", 64)
		inst, err := svc.Resolve(ctx, platform, version)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		f, err := os.Open(inst.Path)
		if err != nil {
			status := pkgerrors.CodeInternal
			if os.IsNotExist(err) {
				status = pkgerrors.CodeNotFound
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(status, err, "installer not found"))
			return
		}
		defer f.Close()

		w.Header().Set("Content-Type", downloads.ContentType(inst))
		w.Header().Set("Content-Length", strconv.FormatInt(inst.Size, 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, inst.FileName))
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)

		svc.Track(ctx, inst, downloads.Download{
			IPAddress: middleware.ClientIP(r),
			UserAgent: r.UserAgent(),
		})

		if _, err := io.Copy(w, f); err != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "installer stream interrupted")
		}
	}
}
