package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bookkeeper/internal/core"
	"bookkeeper/internal/ledger"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so the same query code
// runs inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
	q  dbtx
	tx *sql.Tx // non-nil when this repository is transaction-scoped
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, q: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InTx runs fn against a transaction-scoped repository. A nested call
// joins the enclosing transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(ledger.Store) error) error {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &SQLiteRepository{db: r.db, q: tx, tx: tx}
	if err := fn(txRepo); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const snapshotColumns = "id, user_id, reconciliation_date, total_amount, note"

func (r *SQLiteRepository) FindSnapshot(ctx context.Context, userID int64, date core.Date) (*core.Snapshot, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+snapshotColumns+" FROM reconciliation_snapshots WHERE user_id = ? AND reconciliation_date = ?",
		userID, date.String())

	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	return snap, nil
}

func (r *SQLiteRepository) ListSnapshotsDesc(ctx context.Context, userID int64) ([]core.Snapshot, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+snapshotColumns+" FROM reconciliation_snapshots WHERE user_id = ? ORDER BY reconciliation_date DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, snapshot *core.Snapshot) error {
	if snapshot.ID != 0 {
		_, err := r.q.ExecContext(ctx,
			"UPDATE reconciliation_snapshots SET total_amount = ?, note = ? WHERE id = ? AND user_id = ?",
			snapshot.TotalAmount.String(), nullString(snapshot.Note), snapshot.ID, snapshot.UserID)
		if err != nil {
			return fmt.Errorf("update snapshot: %w", err)
		}
		return nil
	}

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO reconciliation_snapshots (user_id, reconciliation_date, total_amount, note)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id, reconciliation_date)
		 DO UPDATE SET total_amount = excluded.total_amount, note = excluded.note
		 RETURNING id`,
		snapshot.UserID, snapshot.ReconciliationDate.String(),
		snapshot.TotalAmount.String(), nullString(snapshot.Note)).Scan(&snapshot.ID)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteSnapshot(ctx context.Context, userID int64, date core.Date) error {
	_, err := r.q.ExecContext(ctx,
		"DELETE FROM reconciliation_snapshots WHERE user_id = ? AND reconciliation_date = ?",
		userID, date.String())
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

const depositColumns = "id, user_id, account_id, deposit_type, deposit_time, amount, interest_rate, term, note, reconciliation_date"

func (r *SQLiteRepository) ListDeposits(ctx context.Context, userID int64, date core.Date) ([]core.Deposit, error) {
	return r.queryDeposits(ctx,
		"SELECT "+depositColumns+" FROM deposits WHERE user_id = ? AND reconciliation_date = ? ORDER BY id",
		userID, date.String())
}

func (r *SQLiteRepository) ListDepositsByAccount(ctx context.Context, accountID int64, date core.Date) ([]core.Deposit, error) {
	return r.queryDeposits(ctx,
		"SELECT "+depositColumns+" FROM deposits WHERE account_id = ? AND reconciliation_date = ? ORDER BY id",
		accountID, date.String())
}

func (r *SQLiteRepository) queryDeposits(ctx context.Context, query string, args ...any) ([]core.Deposit, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deposits: %w", err)
	}
	defer rows.Close()

	var out []core.Deposit
	for rows.Next() {
		dep, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deposit: %w", err)
		}
		out = append(out, *dep)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountDeposits(ctx context.Context, userID int64, date core.Date) (int64, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deposits WHERE user_id = ? AND reconciliation_date = ?",
		userID, date.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count deposits: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) UpsertDeposit(ctx context.Context, deposit *core.Deposit) error {
	if deposit.ID != 0 {
		_, err := r.q.ExecContext(ctx,
			`UPDATE deposits
			 SET account_id = ?, deposit_type = ?, deposit_time = ?, amount = ?,
			     interest_rate = ?, term = ?, note = ?, reconciliation_date = ?
			 WHERE id = ? AND user_id = ?`,
			deposit.AccountID, deposit.DepositType, deposit.DepositTime.String(),
			deposit.Amount.String(), nullDecimal(deposit.InterestRate), nullDecimal(deposit.Term),
			nullString(deposit.Note), deposit.ReconciliationDate.String(),
			deposit.ID, deposit.UserID)
		if err != nil {
			return fmt.Errorf("update deposit: %w", err)
		}
		return nil
	}

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO deposits (user_id, account_id, deposit_type, deposit_time, amount, interest_rate, term, note, reconciliation_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		deposit.UserID, deposit.AccountID, deposit.DepositType, deposit.DepositTime.String(),
		deposit.Amount.String(), nullDecimal(deposit.InterestRate), nullDecimal(deposit.Term),
		nullString(deposit.Note), deposit.ReconciliationDate.String()).Scan(&deposit.ID)
	if err != nil {
		return fmt.Errorf("insert deposit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDeposit(ctx context.Context, id, userID int64) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM deposits WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete deposit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDepositsForDate(ctx context.Context, userID int64, date core.Date) error {
	_, err := r.q.ExecContext(ctx,
		"DELETE FROM deposits WHERE user_id = ? AND reconciliation_date = ?",
		userID, date.String())
	if err != nil {
		return fmt.Errorf("delete deposits for date: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) FindDepositByID(ctx context.Context, id, userID int64) (*core.Deposit, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+depositColumns+" FROM deposits WHERE id = ? AND user_id = ?",
		id, userID)

	dep, err := scanDeposit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find deposit: %w", err)
	}
	return dep, nil
}

const accountColumns = "id, user_id, name, type, note, status, created_at"

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID int64) ([]core.Account, error) {
	return r.queryAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? ORDER BY id",
		userID)
}

func (r *SQLiteRepository) FindAccount(ctx context.Context, id, userID int64) (*core.Account, error) {
	row := r.q.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ? AND user_id = ?",
		id, userID)

	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return acc, nil
}

func (r *SQLiteRepository) FindAccountsByIDs(ctx context.Context, userID int64, ids []int64) ([]core.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	return r.queryAccounts(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE user_id = ? AND id IN ("+placeholders+") ORDER BY id",
		args...)
}

func (r *SQLiteRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]core.Account, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AccountBelongsToUser(ctx context.Context, accountID, userID int64) (bool, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE id = ? AND user_id = ?",
		accountID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account ownership: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) AccountNameExists(ctx context.Context, userID int64, name string, excludeID int64) (bool, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accounts WHERE user_id = ? AND name = ? AND id != ?",
		userID, name, excludeID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account name: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) AccountHasDeposits(ctx context.Context, accountID int64) (bool, error) {
	var n int64
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM deposits WHERE account_id = ?",
		accountID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account deposits: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) UpsertAccount(ctx context.Context, account *core.Account) error {
	if account.ID != 0 {
		_, err := r.q.ExecContext(ctx,
			"UPDATE accounts SET name = ?, type = ?, note = ?, status = ? WHERE id = ? AND user_id = ?",
			account.Name, account.Type, account.Note, string(account.Status),
			account.ID, account.UserID)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return nil
	}

	err := r.q.QueryRowContext(ctx,
		`INSERT INTO accounts (user_id, name, type, note, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		account.UserID, account.Name, account.Type, account.Note,
		string(account.Status), account.CreatedAt.String()).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id, userID int64) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM accounts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (*core.Snapshot, error) {
	var (
		snap    core.Snapshot
		dateStr string
		total   string
		note    sql.NullString
	)
	if err := row.Scan(&snap.ID, &snap.UserID, &dateStr, &total, &note); err != nil {
		return nil, err
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return nil, fmt.Errorf("parse reconciliation date %q: %w", dateStr, err)
	}
	snap.ReconciliationDate = date

	snap.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total amount %q: %w", total, err)
	}
	if note.Valid {
		snap.Note = &note.String
	}
	return &snap, nil
}

func scanDeposit(row rowScanner) (*core.Deposit, error) {
	var (
		dep       core.Deposit
		timeStr   string
		amount    string
		rate      sql.NullString
		term      sql.NullString
		note      sql.NullString
		reconDate string
	)
	err := row.Scan(&dep.ID, &dep.UserID, &dep.AccountID, &dep.DepositType,
		&timeStr, &amount, &rate, &term, &note, &reconDate)
	if err != nil {
		return nil, err
	}

	if dep.DepositTime, err = core.ParseDate(timeStr); err != nil {
		return nil, fmt.Errorf("parse deposit time %q: %w", timeStr, err)
	}
	if dep.ReconciliationDate, err = core.ParseDate(reconDate); err != nil {
		return nil, fmt.Errorf("parse reconciliation date %q: %w", reconDate, err)
	}
	if dep.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if dep.InterestRate, err = parseNullDecimal(rate); err != nil {
		return nil, fmt.Errorf("parse interest rate: %w", err)
	}
	if dep.Term, err = parseNullDecimal(term); err != nil {
		return nil, fmt.Errorf("parse term: %w", err)
	}
	if note.Valid {
		dep.Note = &note.String
	}
	return &dep, nil
}

func scanAccount(row rowScanner) (*core.Account, error) {
	var (
		acc       core.Account
		status    string
		createdAt string
	)
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Name, &acc.Type, &acc.Note, &status, &createdAt)
	if err != nil {
		return nil, err
	}

	acc.Status = core.AccountStatus(status)
	if acc.CreatedAt, err = core.ParseDate(createdAt); err != nil {
		return nil, fmt.Errorf("parse created at %q: %w", createdAt, err)
	}
	return &acc, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
