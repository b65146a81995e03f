package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/escudo-app/escudo/internal/model"
)

// GetActiveRules returns all non-tombstoned rules.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT
			id, keyword, major_category, category, tags, is_default, is_regex, created_at, deleted_at
		FROM rules WHERE deleted_at IS NULL ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rules: %w", err)
	}

	return result, nil
}

// SaveRule inserts a new custom rule or updates an existing one. Keywords
// are stored lowercase; at most one active rule may exist per keyword, which
// the partial unique index enforces.
func (s *SQLiteStorage) SaveRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("rule is required")
	}
	if err := validateString(rule.Keyword, "keyword"); err != nil {
		return err
	}
	if err := validateString(rule.MajorCategory, "majorCategory"); err != nil {
		return err
	}
	if err := validateString(rule.Category, "category"); err != nil {
		return err
	}

	keyword := strings.ToLower(strings.TrimSpace(rule.Keyword))

	var err error
	if rule.ID == 0 {
		var result sql.Result
		result, err = s.db.ExecContext(ctx, `INSERT INTO rules
				(keyword, major_category, category, tags, is_default, is_regex, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			keyword, rule.MajorCategory, rule.Category, joinTags(rule.Tags),
			rule.IsDefault, rule.IsRegex, time.Now().UTC())
		if err == nil {
			if id, idErr := result.LastInsertId(); idErr == nil {
				rule.ID = id
			}
		}
	} else {
		_, err = s.db.ExecContext(ctx, `UPDATE rules SET
				keyword = ?, major_category = ?, category = ?, tags = ?, is_regex = ?
			WHERE id = ? AND deleted_at IS NULL`,
			keyword, rule.MajorCategory, rule.Category, joinTags(rule.Tags),
			rule.IsRegex, rule.ID)
	}

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateKeyword, keyword)
		}
		return fmt.Errorf("failed to save rule: %w", err)
	}

	rule.Keyword = keyword
	return nil
}

// DeleteRule tombstones a custom rule. Default rules are refused.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	rule, err := s.getRule(ctx, id)
	if err != nil {
		return err
	}
	if rule.IsDefault {
		return fmt.Errorf("%w: %s", ErrDefaultRule, rule.Keyword)
	}
	if !rule.IsActive() {
		return nil
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE rules SET deleted_at = ? WHERE id = ?`, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

// RestoreRule clears a custom rule's tombstone, returning it to active
// status with its original keyword and category intact.
func (s *SQLiteStorage) RestoreRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.getRule(ctx, id); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE rules SET deleted_at = NULL WHERE id = ?`, id); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: another active rule uses this keyword", ErrDuplicateKeyword)
		}
		return fmt.Errorf("failed to restore rule: %w", err)
	}
	return nil
}

// GetTaxonomy returns the full category hierarchy.
func (s *SQLiteStorage) GetTaxonomy(ctx context.Context) (model.Taxonomy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, major_category, category, sub_category FROM taxonomy ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomy: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var taxonomy model.Taxonomy
	for rows.Next() {
		var c model.CategorySet
		if err := rows.Scan(&c.ID, &c.MajorCategory, &c.Category, &c.SubCategory); err != nil {
			return nil, fmt.Errorf("failed to scan taxonomy row: %w", err)
		}
		taxonomy = append(taxonomy, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate taxonomy: %w", err)
	}

	return taxonomy, nil
}

func (s *SQLiteStorage) getRule(ctx context.Context, id int64) (*model.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
			id, keyword, major_category, category, tags, is_default, is_regex, created_at, deleted_at
		FROM rules WHERE id = ?`, id)

	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrRuleNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}
	return rule, nil
}

func scanRule(row rowScanner) (*model.Rule, error) {
	var (
		rule      model.Rule
		tags      string
		createdAt sql.NullTime
		deletedAt sql.NullTime
	)

	err := row.Scan(&rule.ID, &rule.Keyword, &rule.MajorCategory, &rule.Category,
		&tags, &rule.IsDefault, &rule.IsRegex, &createdAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	rule.Tags = splitTags(tags)
	if createdAt.Valid {
		rule.CreatedAt = createdAt.Time
	}
	if deletedAt.Valid {
		rule.DeletedAt = &deletedAt.Time
	}

	return &rule, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
