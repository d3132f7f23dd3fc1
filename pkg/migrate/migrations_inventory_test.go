package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerdesk/portal-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no %s migration found", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestBillingMigrationEnforcesIdempotencyAndClamp(t *testing.T) {
	content := readMigration(t, "create_portal_billing")
	for _, sub := range []string{
		"CONSTRAINT portal_payments_provider_payment_id_key UNIQUE (provider_payment_id)",
		"CHECK (balance_due >= 0 AND balance_due <= total_amount)",
		"numeric(12,2)",
		"DROP TABLE IF EXISTS portal_payments",
	} {
		assert.True(t, strings.Contains(content, sub), "missing %q", sub)
	}
}

func TestUsageMigrationUsesCompositeKey(t *testing.T) {
	content := readMigration(t, "create_receipt_scan_usage")
	assert.Contains(t, content, "PRIMARY KEY (license_key, usage_month)")
	assert.Contains(t, content, "date_trunc('month', usage_month) = usage_month")
}

func TestKeyTablesPinPrefixes(t *testing.T) {
	assert.Contains(t, readMigration(t, "create_license_keys"), "CHECK (license_key LIKE 'STND-%')")
	assert.Contains(t, readMigration(t, "create_premium_subscriptions"), "CHECK (subscription_key LIKE 'PREM-%')")
}

func TestEmbeddedMigrationsMatchSourceTree(t *testing.T) {
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)

	embedded, err := migrate.EmbeddedNames()
	require.NoError(t, err)

	names := make([]string, 0, len(onDisk))
	for _, path := range onDisk {
		names = append(names, filepath.Base(path))
	}
	assert.ElementsMatch(t, names, embedded)
}
