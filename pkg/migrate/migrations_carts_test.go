package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCartsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_carts.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no carts migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS carts",
		"CONSTRAINT carts_user_id_key UNIQUE (user_id)",
		"CONSTRAINT carts_session_token_key UNIQUE (session_token)",
		"CREATE TABLE IF NOT EXISTS cart_items",
		"FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE",
		"CHECK (quantity > 0)",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_product_id",
		"DROP TABLE IF EXISTS cart_items",
		"DROP TABLE IF EXISTS carts",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
