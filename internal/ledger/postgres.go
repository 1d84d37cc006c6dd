package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT a.id, COALESCE(SUM(e.amount), 0)
        FROM accounts a
        LEFT JOIN entries e ON e.account_id = a.id
        WHERE a.code = $1
        GROUP BY a.id`
	var (
		id      uuid.UUID
		balance int64
	)
	if err := l.db.QueryRow(ctx, query, code).Scan(&id, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts after checking the source balance.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromAccountID, err := accountIDForCode(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := accountIDForCode(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	existingTxID, _, found, err := existingTransaction(ctx, tx, kind, clientTxID)
	if err != nil {
		return TransactionResult{}, err
	}
	if found {
		fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		toBal, err := balanceForAccount(ctx, tx, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existingTxID.String(), FromBalance: fromBal, ToBalance: toBal}, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	txID, err := insertBalanced(ctx, tx, kind, clientTxID, StatusCompleted, toAccountID, fromAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	toBal, err := balanceForAccount(ctx, tx, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{TransactionID: txID.String(), FromBalance: fromBal, ToBalance: toBal}, nil
}

// Post credits the target account from a source that is allowed to go negative.
func (l *PostgresLedger) Post(ctx context.Context, p Posting) (PostingResult, error) {
	if p.Amount <= 0 {
		return PostingResult{}, ErrInvalidAmount
	}
	if p.Status == "" {
		p.Status = StatusCompleted
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return PostingResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := accountIDForCode(ctx, tx, p.Account)
	if err != nil {
		return PostingResult{}, err
	}
	sourceID, err := accountIDForCode(ctx, tx, p.Source)
	if err != nil {
		return PostingResult{}, err
	}

	existingTxID, existingStatus, found, err := existingTransaction(ctx, tx, p.Kind, p.ClientTxID)
	if err != nil {
		return PostingResult{}, err
	}
	if found {
		bal, err := balanceForAccount(ctx, tx, accountID)
		if err != nil {
			return PostingResult{}, err
		}
		return PostingResult{TransactionID: existingTxID.String(), Balance: bal, Status: existingStatus}, ErrDuplicateTransaction
	}

	txID, err := insertBalanced(ctx, tx, p.Kind, p.ClientTxID, p.Status, accountID, sourceID, p.Amount)
	if err != nil {
		return PostingResult{}, err
	}

	balance, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return PostingResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return PostingResult{}, err
	}

	return PostingResult{TransactionID: txID.String(), Balance: balance, Status: p.Status}, nil
}

// Posted returns the transaction recorded for kind and clientTxID, if any.
func (l *PostgresLedger) Posted(ctx context.Context, kind, clientTxID string) (PostingResult, bool, error) {
	var (
		id     uuid.UUID
		status string
	)
	err := l.db.QueryRow(ctx, `SELECT id, status FROM transactions WHERE client_tx_id = $1 AND kind = $2`, clientTxID, kind).Scan(&id, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return PostingResult{}, false, nil
	}
	if err != nil {
		return PostingResult{}, false, err
	}
	return PostingResult{TransactionID: id.String(), Status: status}, true, nil
}

func insertBalanced(ctx context.Context, tx pgx.Tx, kind, clientTxID, status string, creditID, debitID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, status); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, debitID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, creditID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func existingTransaction(ctx context.Context, tx pgx.Tx, kind, clientTxID string) (uuid.UUID, string, bool, error) {
	const query = `SELECT id, status FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var (
		id     uuid.UUID
		status string
	)
	if err := tx.QueryRow(ctx, query, clientTxID, kind).Scan(&id, &status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, "", false, nil
		}
		return uuid.Nil, "", false, err
	}
	return id, status, true, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}
