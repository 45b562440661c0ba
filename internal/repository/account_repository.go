package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/quizhub-backend/internal/model"
)

const accountColumns = `id, roll_number, name, password_hash, role, department, section, batch, is_approved, created_at, updated_at`

// AccountRepository handles active and retired account data access.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	a := &model.Account{}
	err := row.Scan(&a.ID, &a.RollNumber, &a.Name, &a.PasswordHash, &a.Role,
		&a.Department, &a.Section, &a.Batch, &a.IsApproved, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

// Create inserts a new account. Returns ErrDuplicate when the roll number is taken.
func (r *AccountRepository) Create(ctx context.Context, a *model.Account) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO accounts (roll_number, name, password_hash, role, department, section, batch, is_approved)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		a.RollNumber, a.Name, a.PasswordHash, a.Role, a.Department, a.Section, a.Batch, a.IsApproved,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return translate(err)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// GetByRollNumber retrieves an account by its unique roll number.
func (r *AccountRepository) GetByRollNumber(ctx context.Context, rollNumber string) (*model.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE roll_number = $1`, rollNumber))
}

// List returns approved or pending accounts matching the filter in insertion order.
func (r *AccountRepository) List(ctx context.Context, approved bool, f model.AccountFilter) ([]model.Account, error) {
	where := []string{"is_approved = $1"}
	args := []any{approved}
	where, args = appendAccountFilter(f, where, args)

	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// Approve flips is_approved for the given pending accounts and reports how many changed.
func (r *AccountRepository) Approve(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET is_approved = TRUE, updated_at = NOW()
		 WHERE id = ANY($1) AND is_approved = FALSE`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountExisting reports how many of ids belong to active accounts.
func (r *AccountRepository) CountExisting(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE id = ANY($1)`, ids).Scan(&n)
	return n, err
}

// Retire snapshots the account into retired_accounts and deletes it, atomically.
func (r *AccountRepository) Retire(ctx context.Context, id uuid.UUID) (*model.RetiredAccount, error) {
	ra := &model.RetiredAccount{}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`WITH gone AS (
			     DELETE FROM accounts WHERE id = $1
			     RETURNING id, roll_number, name, role, department, section, batch, created_at
			 )
			 INSERT INTO retired_accounts (account_id, roll_number, name, role, department, section, batch, created_at)
			 SELECT id, roll_number, name, role, department, section, batch, created_at FROM gone
			 RETURNING id, account_id, roll_number, name, role, department, section, batch, created_at, retired_at`, id,
		).Scan(&ra.ID, &ra.AccountID, &ra.RollNumber, &ra.Name, &ra.Role,
			&ra.Department, &ra.Section, &ra.Batch, &ra.CreatedAt, &ra.RetiredAt)
		return translate(err)
	})
	if err != nil {
		return nil, err
	}
	return ra, nil
}

// ListRetired returns retired snapshots matching the filter, most recently retired first.
func (r *AccountRepository) ListRetired(ctx context.Context, f model.AccountFilter) ([]model.RetiredAccount, error) {
	where := []string{"TRUE"}
	var args []any
	where, args = appendAccountFilter(f, where, args)

	rows, err := r.pool.Query(ctx,
		`SELECT id, account_id, roll_number, name, role, department, section, batch, created_at, retired_at
		 FROM retired_accounts
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY retired_at DESC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	retired := []model.RetiredAccount{}
	for rows.Next() {
		var ra model.RetiredAccount
		if err := rows.Scan(&ra.ID, &ra.AccountID, &ra.RollNumber, &ra.Name, &ra.Role,
			&ra.Department, &ra.Section, &ra.Batch, &ra.CreatedAt, &ra.RetiredAt); err != nil {
			return nil, err
		}
		retired = append(retired, ra)
	}
	return retired, rows.Err()
}

// Restore recreates an approved account from a retired snapshot with the given
// password hash, reusing the original account ID, and removes the snapshot.
// Returns ErrNotFound if the snapshot is gone and ErrDuplicate if an active
// account already holds the roll number.
func (r *AccountRepository) Restore(ctx context.Context, retiredID uuid.UUID, passwordHash string) (*model.Account, error) {
	var restored *model.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var ra model.RetiredAccount
		err := tx.QueryRow(ctx,
			`SELECT account_id, roll_number, name, role, department, section, batch, created_at
			 FROM retired_accounts WHERE id = $1 FOR UPDATE`, retiredID,
		).Scan(&ra.AccountID, &ra.RollNumber, &ra.Name, &ra.Role, &ra.Department, &ra.Section, &ra.Batch, &ra.CreatedAt)
		if err != nil {
			return translate(err)
		}

		var taken bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM accounts WHERE roll_number = $1 OR id = $2)`,
			ra.RollNumber, ra.AccountID,
		).Scan(&taken); err != nil {
			return err
		}
		if taken {
			return ErrDuplicate
		}

		restored, err = scanAccount(tx.QueryRow(ctx,
			`INSERT INTO accounts (id, roll_number, name, password_hash, role, department, section, batch, is_approved, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)
			 RETURNING `+accountColumns,
			ra.AccountID, ra.RollNumber, ra.Name, passwordHash, ra.Role, ra.Department, ra.Section, ra.Batch, ra.CreatedAt))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM retired_accounts WHERE id = $1`, retiredID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// DeleteRetired permanently removes a retired snapshot.
func (r *AccountRepository) DeleteRetired(ctx context.Context, retiredID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM retired_accounts WHERE id = $1`, retiredID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces an account's password hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile locks the account row, lets mutate edit a copy, re-checks roll number
// uniqueness and writes the result, all in one transaction. An error from mutate
// aborts the transaction and is returned unchanged.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, mutate func(a *model.Account) error) (*model.Account, error) {
	var updated *model.Account
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanAccount(tx.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		next := *current
		if err := mutate(&next); err != nil {
			return err
		}

		if next.RollNumber != current.RollNumber {
			var taken bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM accounts WHERE roll_number = $1 AND id <> $2)`,
				next.RollNumber, id,
			).Scan(&taken); err != nil {
				return err
			}
			if taken {
				return ErrDuplicate
			}
		}

		updated, err = scanAccount(tx.QueryRow(ctx,
			`UPDATE accounts
			 SET roll_number = $1, name = $2, password_hash = $3, department = $4,
			     section = $5, batch = $6, updated_at = $7
			 WHERE id = $8
			 RETURNING `+accountColumns,
			next.RollNumber, next.Name, next.PasswordHash, next.Department,
			next.Section, next.Batch, time.Now(), id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// appendAccountFilter appends WHERE fragments for the filter, numbering placeholders after args.
func appendAccountFilter(f model.AccountFilter, where []string, args []any) ([]string, []any) {
	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	ilike := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, escapeLike(value))
		where = append(where, fmt.Sprintf(`%s ILIKE '%%' || $%d || '%%' ESCAPE '\'`, column, len(args)))
	}
	ilike("department", f.Department)
	ilike("section", f.Section)
	ilike("batch", f.Batch)

	if f.Search != "" {
		args = append(args, escapeLike(f.Search))
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(name ILIKE '%%' || $%d || '%%' ESCAPE '\' OR roll_number ILIKE '%%' || $%d || '%%' ESCAPE '\')`, n, n))
	}
	return where, args
}
