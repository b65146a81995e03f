package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					fingerprint TEXT NOT NULL,
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					amount REAL NOT NULL,
					balance REAL,
					origin TEXT NOT NULL,
					bank TEXT NOT NULL,
					major_category TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					sub_category TEXT NOT NULL DEFAULT '',
					tags TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT 'pending',
					review_status TEXT NOT NULL DEFAULT 'pending_review',
					flagged INTEGER NOT NULL DEFAULT 1,
					potential_duplicate_id TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL DEFAULT '',
					confidence REAL NOT NULL DEFAULT 0,
					reasoning TEXT NOT NULL DEFAULT '',
					classifier_version TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					deleted_at DATETIME
				)`,
				`CREATE INDEX idx_transactions_date ON transactions(date)`,
				`CREATE INDEX idx_transactions_fingerprint ON transactions(fingerprint)`,
				`CREATE INDEX idx_transactions_origin_date ON transactions(origin, date)`,
				`CREATE INDEX idx_transactions_status ON transactions(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Rules with soft delete and one active rule per keyword",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS rules (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					keyword TEXT NOT NULL,
					major_category TEXT NOT NULL,
					category TEXT NOT NULL,
					tags TEXT NOT NULL DEFAULT '',
					is_default INTEGER NOT NULL DEFAULT 0,
					is_regex INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					deleted_at DATETIME
				)`,
				`CREATE UNIQUE INDEX idx_rules_active_keyword
					ON rules(keyword) WHERE deleted_at IS NULL`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Category taxonomy and suggestion feedback audit trail",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS taxonomy (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					major_category TEXT NOT NULL,
					category TEXT NOT NULL,
					sub_category TEXT NOT NULL DEFAULT '',
					UNIQUE(major_category, category, sub_category)
				)`,
				`CREATE TABLE IF NOT EXISTS suggestion_feedback (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					transaction_id TEXT NOT NULL,
					suggested_major TEXT NOT NULL,
					suggested_category TEXT NOT NULL,
					suggested_sub TEXT NOT NULL DEFAULT '',
					suggested_tags TEXT NOT NULL DEFAULT '',
					suggested_confidence REAL NOT NULL DEFAULT 0,
					source TEXT NOT NULL,
					action TEXT NOT NULL,
					final_major TEXT NOT NULL DEFAULT '',
					final_category TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					FOREIGN KEY (transaction_id) REFERENCES transactions(id)
				)`,
				`CREATE INDEX idx_feedback_transaction_id ON suggestion_feedback(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Seed default taxonomy and default rules",
		Up: func(tx *sql.Tx) error {
			taxonomySeed := [][3]string{
				{"Custos Fixos", "Alimentação", ""},
				{"Custos Fixos", "Alimentação", "Supermercado"},
				{"Custos Fixos", "Alimentação", "Restaurantes"},
				{"Custos Fixos", "Habitação", ""},
				{"Custos Fixos", "Habitação", "Renda"},
				{"Custos Fixos", "Habitação", "Utilidades"},
				{"Custos Fixos", "Transportes", ""},
				{"Custos Fixos", "Saúde", ""},
				{"Custos Variáveis", "Lazer", ""},
				{"Custos Variáveis", "Compras", ""},
				{"Custos Variáveis", "Subscrições", ""},
				{"Rendimentos", "Salário", ""},
				{"Rendimentos", "Reembolsos", ""},
				{"Poupança", "Investimentos", ""},
				{"Poupança", "Depósitos", ""},
			}
			for _, row := range taxonomySeed {
				if _, err := tx.Exec(
					`INSERT OR IGNORE INTO taxonomy (major_category, category, sub_category) VALUES (?, ?, ?)`,
					row[0], row[1], row[2]); err != nil {
					return fmt.Errorf("failed to seed taxonomy: %w", err)
				}
			}

			ruleSeed := [][3]string{
				{"continente", "Custos Fixos", "Alimentação"},
				{"pingo doce", "Custos Fixos", "Alimentação"},
				{"lidl", "Custos Fixos", "Alimentação"},
				{"mercadona", "Custos Fixos", "Alimentação"},
				{"uber eats", "Custos Variáveis", "Lazer"},
				{"edp", "Custos Fixos", "Habitação"},
				{"galp", "Custos Fixos", "Transportes"},
				{"farmacia", "Custos Fixos", "Saúde"},
				{"netflix", "Custos Variáveis", "Subscrições"},
				{"spotify", "Custos Variáveis", "Subscrições"},
				{"vencimento", "Rendimentos", "Salário"},
			}
			for _, row := range ruleSeed {
				if _, err := tx.Exec(
					`INSERT INTO rules (keyword, major_category, category, is_default) VALUES (?, ?, ?, 1)`,
					row[0], row[1], row[2]); err != nil {
					return fmt.Errorf("failed to seed rules: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any outstanding schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, migration.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	return nil
}
