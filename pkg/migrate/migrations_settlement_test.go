package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brightlens-media/payouts-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestSettlementMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_settlement_tables.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no settlement migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS settlement_locks",
		"idempotency_key text NOT NULL UNIQUE",
		"CHECK (amount_cents >= 0)",
		"REFERENCES orders(id)",
		"DROP TABLE IF EXISTS settlement_locks",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestSettingsMigrationSeedsRoleDefaults(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_payout_settings.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no payout settings migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, key := range []string{
		"photographer_percent",
		"videographer_percent",
		"partner_percent",
		"editing_pool_percent",
		"quality_review_pool_percent",
		"operating_pool_percent",
	} {
		if !strings.Contains(content, key) {
			t.Errorf("missing seeded setting %q", key)
		}
	}
}
