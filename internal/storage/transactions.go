package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/escudo-app/escudo/internal/model"
	"github.com/escudo-app/escudo/internal/service"
)

const transactionColumns = `id, fingerprint, date, description, amount, balance, origin, bank,
	major_category, category, sub_category, tags, status, review_status, flagged,
	potential_duplicate_id, source, confidence, reasoning, classifier_version,
	created_at, deleted_at`

// SaveTransactions inserts a batch of transactions in one database
// transaction. Imported rows start pending and flagged for review.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(transactions) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(id, fingerprint, date, description, amount, balance, origin, bank,
		 status, review_status, flagged, potential_duplicate_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		createdAt := txn.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			txn.ID, txn.Fingerprint(), txn.Date.UTC(), txn.Description, txn.Amount,
			txn.Balance, txn.Origin, txn.Bank,
			string(model.StatusPending), string(model.ReviewPending), true,
			txn.PotentialDuplicateID, createdAt); err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// GetTransactionByID returns one transaction, including soft-deleted ones.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// GetHistory returns the owner's non-rejected, non-deleted transactions
// within the filter window. This is the duplicate-detection pool.
func (s *SQLiteStorage) GetHistory(ctx context.Context, filter service.HistoryFilter) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, filter, false)
}

// GetCategorizedHistory returns the owner's categorized history within the
// filter window, most recent first. This feeds similarity matching and the
// AI classifier's examples.
func (s *SQLiteStorage) GetCategorizedHistory(ctx context.Context, filter service.HistoryFilter) ([]model.Transaction, error) {
	return s.queryTransactions(ctx, filter, true)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, filter service.HistoryFilter, categorizedOnly bool) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE deleted_at IS NULL
		  AND review_status != 'rejected'
		  AND date >= ?`
	args := []any{filter.Since.UTC()}

	if filter.Origin != "" {
		query += ` AND origin = ?`
		args = append(args, filter.Origin)
	}
	if categorizedOnly {
		query += ` AND major_category != '' AND category != ''`
	}
	query += ` ORDER BY date DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.collectTransactions(ctx, query, args...)
}

// GetPendingTransactions returns uncategorized, non-deleted transactions in
// import order, capped at limit.
func (s *SQLiteStorage) GetPendingTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE deleted_at IS NULL
		  AND review_status != 'rejected'
		  AND status = 'pending'
		ORDER BY date ASC, id ASC
		LIMIT ?`

	return s.collectTransactions(ctx, query, limit)
}

// SaveCategorization writes the derived category fields of a transaction.
// Raw import fields are never touched.
func (s *SQLiteStorage) SaveCategorization(ctx context.Context, txn *model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if txn == nil || txn.ID == "" {
		return fmt.Errorf("transaction with an ID is required")
	}

	result, err := s.db.ExecContext(ctx, `UPDATE transactions SET
			major_category = ?, category = ?, sub_category = ?, tags = ?,
			status = ?, flagged = ?, source = ?, confidence = ?,
			reasoning = ?, classifier_version = ?
		WHERE id = ? AND deleted_at IS NULL`,
		txn.MajorCategory, txn.Category, txn.SubCategory, joinTags(txn.Tags),
		string(txn.Status), txn.Flagged, string(txn.Source), txn.Confidence,
		txn.Reasoning, txn.ClassifierVersion, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to save categorization: %w", err)
	}

	return requireOneRow(result, txn.ID)
}

// ApproveTransaction clears the review status.
func (s *SQLiteStorage) ApproveTransaction(ctx context.Context, id string) error {
	return s.updateReview(ctx, id,
		`UPDATE transactions SET review_status = '' WHERE id = ? AND deleted_at IS NULL`)
}

// RejectTransaction marks the transaction rejected and tombstones it.
// Rejected rows disappear from history pools and active listings but stay
// physically present so they can be restored.
func (s *SQLiteStorage) RejectTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET review_status = 'rejected', deleted_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to reject transaction: %w", err)
	}
	return requireOneRow(result, id)
}

// RestoreTransaction clears the tombstone and puts the transaction back in
// the review queue.
func (s *SQLiteStorage) RestoreTransaction(ctx context.Context, id string) error {
	return s.updateReview(ctx, id,
		`UPDATE transactions SET deleted_at = NULL, review_status = 'pending_review' WHERE id = ?`)
}

// SoftDeleteTransaction tombstones a transaction without touching its review
// status.
func (s *SQLiteStorage) SoftDeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireOneRow(result, id)
}

func (s *SQLiteStorage) updateReview(ctx context.Context, id, query string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to update review state: %w", err)
	}
	return requireOneRow(result, id)
}

func requireOneRow(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
	}
	return nil
}

func (s *SQLiteStorage) collectTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var (
		txn       model.Transaction
		fp        string
		balance   sql.NullFloat64
		tags      string
		status    string
		review    string
		source    string
		createdAt sql.NullTime
		deletedAt sql.NullTime
	)

	err := row.Scan(&txn.ID, &fp, &txn.Date, &txn.Description, &txn.Amount,
		&balance, &txn.Origin, &txn.Bank,
		&txn.MajorCategory, &txn.Category, &txn.SubCategory, &tags,
		&status, &review, &txn.Flagged,
		&txn.PotentialDuplicateID, &source, &txn.Confidence, &txn.Reasoning,
		&txn.ClassifierVersion, &createdAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	if balance.Valid {
		txn.Balance = &balance.Float64
	}
	txn.Tags = splitTags(tags)
	txn.Status = model.TransactionStatus(status)
	txn.ReviewStatus = model.ReviewStatus(review)
	txn.Source = model.CategorySource(source)
	if createdAt.Valid {
		txn.CreatedAt = createdAt.Time
	}
	if deletedAt.Valid {
		txn.DeletedAt = &deletedAt.Time
	}

	return &txn, nil
}
