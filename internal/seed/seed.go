package seed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/sevencars/estimation/internal/pricing"
)

const defaultGarageName = "7 Cars Garage Sàrl"

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	GarageName    string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way: the admin user and the
// pricing parameters singleton with the dealership defaults.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensurePricingParams(tx, cfg.GarageName, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, hashPassword(password)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

// hashPassword must stay in sync with the auth service's hashing scheme.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

func ensurePricingParams(tx *sql.Tx, garageName string, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM pricing_params WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check pricing params existence: %w", err)
	}
	if exists {
		return nil
	}

	if garageName == "" {
		garageName = defaultGarageName
	}

	defaults := pricing.DefaultParams()
	if _, err := tx.Exec(`
		INSERT INTO pricing_params (id, garage_name, net_margin_rate, fixed_fee, vat_rate)
		VALUES (1, ?, ?, ?, ?)
	`, garageName, defaults.NetMarginRate, defaults.FixedFee, defaults.VATRate); err != nil {
		return fmt.Errorf("insert pricing params singleton: %w", err)
	}
	stats.Inserts++
	return nil
}
