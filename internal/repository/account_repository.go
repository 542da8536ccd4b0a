package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ojt-labs/account-api/internal/models"
)

// AccountRepository provides database access for account management. It is
// the durable credential store: account rows, password hashes, role
// memberships and OTP state all live behind it.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, email, username, phone, address, salary, balance, password_hash, otp_code, otp_expires_at, created_at`

// ListAll returns every account. Directory lookups scan this full set.
func (r *AccountRepository) ListAll(ctx context.Context) ([]models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts ORDER BY created_at`, accountColumns)
	accounts := []models.Account{}
	if err := r.db.SelectContext(ctx, &accounts, query); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// FindByEmail returns an account by email address.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE email = $1 LIMIT 1`, accountColumns)
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// Create inserts a new account row.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO accounts (id, email, username, phone, address, salary, balance, password_hash, otp_code, otp_expires_at, created_at)
		VALUES (:id, :email, :username, :phone, :address, :salary, :balance, :password_hash, :otp_code, :otp_expires_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Update overwrites the mutable profile fields of an account.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	const query = `UPDATE accounts SET email = :email, username = :username, phone = :phone, address = :address, salary = :salary, balance = :balance WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// Delete removes an account and its role memberships.
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM account_roles WHERE account_id = $1`, id); err != nil {
		return fmt.Errorf("delete account roles: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// AddRole grants a role membership to an account.
func (r *AccountRepository) AddRole(ctx context.Context, accountID, role string) error {
	const query = `INSERT INTO account_roles (account_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, accountID, role); err != nil {
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}

// RolesOf returns the role memberships of an account.
func (r *AccountRepository) RolesOf(ctx context.Context, accountID string) ([]string, error) {
	roles := []string{}
	if err := r.db.SelectContext(ctx, &roles, `SELECT role FROM account_roles WHERE account_id = $1`, accountID); err != nil {
		return nil, fmt.Errorf("roles of account: %w", err)
	}
	return roles, nil
}

// SetOTP stores a one-time password and its expiry on the account.
func (r *AccountRepository) SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	const query = `UPDATE accounts SET otp_code = $2, otp_expires_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, code, expiresAt); err != nil {
		return fmt.Errorf("set otp: %w", err)
	}
	return nil
}

// ResetPassword replaces the password hash and clears the OTP fields in a
// single statement so a consumed code can never outlive the reset.
func (r *AccountRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE accounts SET password_hash = $2, otp_code = NULL, otp_expires_at = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
