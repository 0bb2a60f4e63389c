package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// MySQL splits traffic: all writes go to the primary, ownership checks read
// from the replica.
type MySQL struct {
	wdb *sql.DB
	rdb *sql.DB
	log *zap.SugaredLogger
}

func NewMySQL(wdb *sql.DB, rdb *sql.DB, log *zap.SugaredLogger) *MySQL {
	return &MySQL{wdb: wdb, rdb: rdb, log: log}
}

// AppendMessage inserts one message and bumps the session's updated_at in a
// single transaction. The unique key on (request_id, role) makes retried
// commits of the same stream session idempotent.
func (m *MySQL) AppendMessage(ctx context.Context, msg Message) error {
	return ExecuteTransaction(ctx, m.wdb, []func(*sql.Tx) error{
		func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `
			INSERT INTO message (
				session_id, request_id, role, content,
				model_id, truncated, incomplete, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				content = VALUES(content),
				model_id = VALUES(model_id),
				truncated = VALUES(truncated),
				incomplete = VALUES(incomplete)`,
				msg.SessionID, msg.RequestID, msg.Role, msg.Content,
				msg.ModelID, msg.Truncated, msg.Incomplete, msg.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to save message: %w", err)
			}
			return nil
		},
		func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx,
				"UPDATE session SET updated_at = ? WHERE id = ?",
				msg.CreatedAt, msg.SessionID,
			)
			if err != nil {
				return fmt.Errorf("failed to touch session: %w", err)
			}
			return nil
		},
	})
}

func (m *MySQL) VerifyOwnership(ctx context.Context, sessionID string, userID uint64) (bool, error) {
	var owner uint64
	err := m.rdb.QueryRowContext(ctx,
		"SELECT user_id FROM session WHERE id = ?", sessionID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed ownership lookup: %w", err)
	}
	return owner == userID, nil
}

func (m *MySQL) CreateSession(ctx context.Context, sessionID string, userID uint64) error {
	_, err := m.wdb.ExecContext(ctx, `
	INSERT INTO session (id, user_id, created_at, updated_at)
	VALUES (?, ?, NOW(), NOW())
	ON DUPLICATE KEY UPDATE id = id`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// ExecuteTransaction executes one transaction with one or multiple database executions.
func ExecuteTransaction(ctx context.Context, writeDB *sql.DB, fns []func(*sql.Tx) error) error {
	tx, err := writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Execute all functions in the transaction
	for _, fn := range fns {
		if err := fn(tx); err != nil {
			return fmt.Errorf("failed to execute transaction function: %w", err)
		}
	}

	// Commit the transaction if all functions succeeded
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
