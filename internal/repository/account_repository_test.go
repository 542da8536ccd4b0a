package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/ojt-labs/account-api/internal/models"
)

func newAccountRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func accountRows(accounts ...models.Account) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "email", "username", "phone", "address", "salary", "balance", "password_hash", "otp_code", "otp_expires_at", "created_at"})
	for _, a := range accounts {
		rows.AddRow(a.ID, a.Email, a.Username, a.Phone, a.Address, a.Salary, a.Balance, a.PasswordHash, a.OtpCode, a.OtpExpiresAt, a.CreatedAt)
	}
	return rows
}

func TestAccountRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, username")).
		WillReturnRows(accountRows(
			models.Account{ID: "acc-1", Email: "ann@example.com", Username: "ann", CreatedAt: time.Now()},
			models.Account{ID: "acc-2", Email: "bob@example.com", Username: "bob", CreatedAt: time.Now()},
		))

	accounts, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "acc-1", accounts[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, username")).
		WithArgs("ann@example.com").
		WillReturnRows(accountRows(models.Account{ID: "acc-1", Email: "ann@example.com", Username: "ann", CreatedAt: time.Now()}))

	account, err := repo.FindByEmail(context.Background(), "ann@example.com")
	require.NoError(t, err)
	require.Equal(t, "acc-1", account.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryFindByEmailNoRows(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, username")).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryCreateAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO accounts")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	account := &models.Account{Email: "ann@example.com", Username: "ann", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), account))
	require.NotEmpty(t, account.ID)
	require.False(t, account.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET email")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	account := &models.Account{ID: "acc-1", Email: "ann@example.com", Username: "ann"}
	require.NoError(t, repo.Update(context.Background(), account))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryDeleteRemovesRolesFirst(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM account_roles WHERE account_id")).
		WithArgs("acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM accounts WHERE id")).
		WithArgs("acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "acc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryRoles(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO account_roles")).
		WithArgs("acc-1", models.RoleTeacher).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AddRole(context.Background(), "acc-1", models.RoleTeacher))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT role FROM account_roles")).
		WithArgs("acc-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(models.RoleTeacher))

	roles, err := repo.RolesOf(context.Background(), "acc-1")
	require.NoError(t, err)
	require.Equal(t, []string{models.RoleTeacher}, roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositorySetOTP(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	expiresAt := time.Now().Add(2 * time.Minute)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET otp_code")).
		WithArgs("acc-1", "123456", expiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetOTP(context.Background(), "acc-1", "123456", expiresAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepositoryResetPasswordClearsOTP(t *testing.T) {
	db, mock, cleanup := newAccountRepoMock(t)
	defer cleanup()

	repo := NewAccountRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE accounts SET password_hash = $2, otp_code = NULL, otp_expires_at = NULL WHERE id = $1")).
		WithArgs("acc-1", "new-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.ResetPassword(context.Background(), "acc-1", "new-hash"))
	require.NoError(t, mock.ExpectationsWereMet())
}
