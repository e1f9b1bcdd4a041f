package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stepwise-app/stepwise/pkg/models"
)

// GetProfile retrieves a user's profile. Returns nil, nil if none was saved.
func (db *DB) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	row := db.queryRowContext(ctx, `
		SELECT user_id, display_name, grade, subjects, self_level, user_context, updated_at
		FROM profiles WHERE user_id = ?
	`, userID)

	var p models.Profile
	var subjects, contexts, selfLevel, updatedAt string
	err := row.Scan(&p.UserID, &p.DisplayName, &p.Grade, &subjects, &selfLevel, &contexts, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(subjects), &p.Subjects); err != nil {
		return nil, fmt.Errorf("unmarshal subjects: %w", err)
	}
	if err := json.Unmarshal([]byte(contexts), &p.UserContext); err != nil {
		return nil, fmt.Errorf("unmarshal user context: %w", err)
	}
	p.SelfLevel = models.SelfLevel(selfLevel)
	p.UpdatedAt, _ = parseTime(updatedAt)
	return &p, nil
}

// SaveProfile creates or replaces a user's profile.
func (db *DB) SaveProfile(ctx context.Context, p *models.Profile) error {
	if p == nil || p.UserID == "" {
		return models.ErrUnauthenticated
	}
	if p.SelfLevel != "" && !p.SelfLevel.Valid() {
		return fmt.Errorf("%w: unknown self level %q", models.ErrValidation, p.SelfLevel)
	}
	for _, c := range p.UserContext {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown user context %q", models.ErrValidation, c)
		}
	}

	subjects := make([]string, 0, len(p.Subjects))
	for _, s := range p.Subjects {
		if s = strings.TrimSpace(s); s != "" {
			subjects = append(subjects, s)
		}
	}
	contexts := p.UserContext
	if contexts == nil {
		contexts = []models.UserContext{}
	}
	subjectsJSON, err := json.Marshal(subjects)
	if err != nil {
		return fmt.Errorf("marshal subjects: %w", err)
	}
	contextsJSON, err := json.Marshal(contexts)
	if err != nil {
		return fmt.Errorf("marshal user context: %w", err)
	}

	p.UpdatedAt = db.now()
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO profiles (user_id, display_name, grade, subjects, self_level, user_context, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				display_name = excluded.display_name,
				grade = excluded.grade,
				subjects = excluded.subjects,
				self_level = excluded.self_level,
				user_context = excluded.user_context,
				updated_at = excluded.updated_at
		`, p.UserID, strings.TrimSpace(p.DisplayName), strings.TrimSpace(p.Grade),
			string(subjectsJSON), string(p.SelfLevel), string(contextsJSON), formatTime(p.UpdatedAt))
		if err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
		return nil
	})
}
