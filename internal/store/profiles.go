package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/bobaba99/truepick/internal/logging"
	"github.com/bobaba99/truepick/internal/types"
)

// ProfileStore persists compiled psychographic profiles with full version
// history. Exactly one row per user carries is_current = 1; recompiling
// closes the old row and inserts the next version.
type ProfileStore struct {
	db *sql.DB
}

// NewProfileStore wires the profile layer over the shared store handle.
func NewProfileStore(s *SQLiteStore) *ProfileStore {
	return &ProfileStore{db: s.GetDB()}
}

// SaveProfile records a newly compiled profile as the current version for
// the user. The version bump and the current-flag swap happen in one
// transaction so readers never observe zero or two current rows.
func (p *ProfileStore) SaveProfile(ctx context.Context, userID string, profile types.PsychographicProfile) error {
	timer := logging.StartTimer(logging.CategoryProfile, "ProfileStore.SaveProfile")
	defer timer.Stop()

	if userID == "" {
		return fmt.Errorf("user id required")
	}

	susceptibilities, err := json.Marshal(profile.Susceptibilities)
	if err != nil {
		return fmt.Errorf("failed to encode susceptibilities: %w", err)
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin profile transaction: %w", err)
	}
	defer tx.Rollback()

	var maxVersion sql.NullInt64
	err = sq.Select("MAX(version)").
		From("profiles").
		Where(sq.Eq{"user_id": userID}).
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&maxVersion)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read profile version: %w", err)
	}

	if maxVersion.Valid {
		if _, err := sq.Update("profiles").
			Set("is_current", 0).
			Where(sq.Eq{"user_id": userID, "is_current": 1}).
			RunWith(tx).
			ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to close current profile: %w", err)
		}
	}

	compiledAt := profile.CompiledAt
	if compiledAt.IsZero() {
		compiledAt = time.Now().UTC()
	}

	if _, err := sq.Insert("profiles").
		Columns("user_id", "version", "risk_tolerance", "monthly_budget",
			"income_band", "susceptibilities", "core_values", "compiled_at", "is_current").
		Values(userID, maxVersion.Int64+1, string(profile.RiskTolerance),
			profile.MonthlyBudget, string(profile.IncomeBand),
			string(susceptibilities), profile.Values, compiledAt, 1).
		RunWith(tx).
		ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit profile: %w", err)
	}

	logging.Get(logging.CategoryProfile).Info("Profile saved: user=%s version=%d", userID, maxVersion.Int64+1)
	return nil
}

// LoadCurrentProfile returns the current profile for the user, or nil
// without error when the user has never completed the quiz.
func (p *ProfileStore) LoadCurrentProfile(ctx context.Context, userID string) (*types.PsychographicProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id required")
	}

	var (
		riskTolerance    string
		monthlyBudget    float64
		incomeBand       string
		susceptibilities sql.NullString
		coreValues       sql.NullString
		compiledAt       time.Time
	)

	err := sq.Select("risk_tolerance", "monthly_budget", "income_band",
		"susceptibilities", "core_values", "compiled_at").
		From("profiles").
		Where(sq.Eq{"user_id": userID, "is_current": 1}).
		RunWith(p.db).
		QueryRowContext(ctx).
		Scan(&riskTolerance, &monthlyBudget, &incomeBand,
			&susceptibilities, &coreValues, &compiledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}

	profile := &types.PsychographicProfile{
		RiskTolerance: types.RiskTolerance(riskTolerance),
		MonthlyBudget: monthlyBudget,
		IncomeBand:    types.IncomeBand(incomeBand),
		Values:        coreValues.String,
		CompiledAt:    compiledAt,
	}

	if susceptibilities.Valid && susceptibilities.String != "" {
		if err := json.Unmarshal([]byte(susceptibilities.String), &profile.Susceptibilities); err != nil {
			logging.Get(logging.CategoryProfile).Warn("Undecodable susceptibilities for %s: %v", userID, err)
		}
	}

	return profile, nil
}

// ProfileVersionCount reports how many versions exist for the user.
func (p *ProfileStore) ProfileVersionCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := sq.Select("COUNT(*)").
		From("profiles").
		Where(sq.Eq{"user_id": userID}).
		RunWith(p.db).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count profile versions: %w", err)
	}
	return count, nil
}
