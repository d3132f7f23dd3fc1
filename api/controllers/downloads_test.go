package controllers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ledgerdesk/portal-backend/internal/downloads"
	"github.com/ledgerdesk/portal-backend/pkg/db/dbtest"
	"github.com/ledgerdesk/portal-backend/pkg/db/models"
)

func newInstallerHandler(t *testing.T, files map[string]string) (http.HandlerFunc, *gorm.DB) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	conn := dbtest.Open(t)
	svc, err := downloads.NewService(downloads.ServiceParams{
		Catalog: downloads.NewCatalog(dir, "Avalonia"),
		Repo:    downloads.NewRepository(conn),
		Logger:  discardLogger(),
	})
	require.NoError(t, err)
	return DownloadInstaller(svc, discardLogger()), conn
}

func TestDownloadInstallerServesNewest(t *testing.T) {
	handler, conn := newInstallerHandler(t, map[string]string{
		"Avalonia-1.9.0-win.exe":  "old build",
		"Avalonia-1.10.0-win.exe": "new build",
	})

	req := httptest.NewRequest(http.MethodGet, "/download/avalonia?platform=win", nil)
	req.Header.Set("User-Agent", "portal-test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "new build", rec.Body.String())
	assert.Equal(t, `attachment; filename="Avalonia-1.10.0-win.exe"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "9", rec.Header().Get("Content-Length"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var events []models.DownloadEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, "1.10.0", events[0].Version)
	require.NotNil(t, events[0].UserAgent)
	assert.Equal(t, "portal-test", *events[0].UserAgent)
}

func TestDownloadInstallerExactVersion(t *testing.T) {
	handler, _ := newInstallerHandler(t, map[string]string{
		"Avalonia-1.9.0-mac.dmg":  "nine",
		"Avalonia-1.10.0-mac.dmg": "ten",
	})

	req := httptest.NewRequest(http.MethodGet, "/download/avalonia?platform=mac&version=1.9.0", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nine", rec.Body.String())
}

func TestDownloadInstallerErrors(t *testing.T) {
	handler, conn := newInstallerHandler(t, map[string]string{
		"Avalonia-1.10.0-win.exe": "build",
	})

	cases := []struct {
		name   string
		query  string
		status int
		code   string
	}{
		{name: "missing platform", query: "", status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "unknown platform", query: "?platform=amiga", status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "no installer", query: "?platform=linux", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown version", query: "?platform=win&version=9.9.9", status: http.StatusNotFound, code: "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/download/avalonia"+tc.query, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeBody(t, rec)["error"])
		})
	}

	var count int64
	require.NoError(t, conn.Model(&models.DownloadEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}
