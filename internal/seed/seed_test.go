package seed

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/sevencars/estimation/internal/db"
	"github.com/sevencars/estimation/internal/migrations"
)

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	cfg := Config{
		AdminEmail:    "admin@7cars.ch",
		AdminPassword: "12345",
		GarageName:    "Garage Test SA",
	}

	for i := 0; i < 10; i++ {
		stats, err := Run(database, cfg)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != 2 {
				t.Fatalf("expected 2 inserts in first run, got %d", stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users WHERE email = ?`, "admin@7cars.ch", 1)
	assertCount(t, database, `SELECT COUNT(*) FROM pricing_params WHERE id = 1`, nil, 1)

	var garageName string
	var marginRate, fixedFee, vatRate float64
	err = database.QueryRow(`
		SELECT garage_name, net_margin_rate, fixed_fee, vat_rate
		FROM pricing_params
		WHERE id = 1
	`).Scan(&garageName, &marginRate, &fixedFee, &vatRate)
	if err != nil {
		t.Fatalf("query pricing params: %v", err)
	}
	if garageName != "Garage Test SA" {
		t.Fatalf("unexpected garage name: %q", garageName)
	}
	if marginRate != 0.15 || fixedFee != 350 || vatRate != 0.081 {
		t.Fatalf("unexpected pricing params defaults: %v %v %v", marginRate, fixedFee, vatRate)
	}
}

func TestRunWithoutAdminCredentialsSkipsUser(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "seed-test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := migrations.Up(database, "../../migrations"); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	stats, err := Run(database, Config{})
	if err != nil {
		t.Fatalf("run seed: %v", err)
	}
	if stats.Inserts != 1 {
		t.Fatalf("expected only the pricing params insert, got %d", stats.Inserts)
	}

	assertCount(t, database, `SELECT COUNT(*) FROM users`, nil, 0)

	var garageName string
	if err := database.QueryRow(`SELECT garage_name FROM pricing_params WHERE id = 1`).Scan(&garageName); err != nil {
		t.Fatalf("query garage name: %v", err)
	}
	if garageName != "7 Cars Garage Sàrl" {
		t.Fatalf("expected default garage name, got %q", garageName)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, args any, expected int) {
	t.Helper()

	var count int
	var err error
	switch v := args.(type) {
	case nil:
		err = database.QueryRow(query).Scan(&count)
	case []any:
		err = database.QueryRow(query, v...).Scan(&count)
	default:
		err = database.QueryRow(query, v).Scan(&count)
	}
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count %d, got %d", expected, count)
	}
}
