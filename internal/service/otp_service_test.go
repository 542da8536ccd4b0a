package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ojt-labs/account-api/internal/models"
)

type fakeOTPRepo struct {
	account  *models.Account
	setErr   error
	resetErr error

	resetID   string
	resetHash string
}

func (f *fakeOTPRepo) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	if f.account == nil || f.account.Email != email {
		return nil, sql.ErrNoRows
	}
	return f.account, nil
}

func (f *fakeOTPRepo) SetOTP(_ context.Context, id, code string, expiresAt time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.account.OtpCode = &code
	f.account.OtpExpiresAt = &expiresAt
	return nil
}

func (f *fakeOTPRepo) ResetPassword(_ context.Context, id, passwordHash string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.resetID = id
	f.resetHash = passwordHash
	f.account.PasswordHash = passwordHash
	f.account.OtpCode = nil
	f.account.OtpExpiresAt = nil
	return nil
}

type fakeSender struct {
	err  error
	to   string
	body string
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.to = to
	f.body = body
	return nil
}

func otpAccount() *models.Account {
	return &models.Account{ID: "acc-1", Email: "student@example.com"}
}

func TestSendOTPUnknownEmail(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount()}
	sender := &fakeSender{}
	svc := NewOTPService(repo, sender, 2*time.Minute, nil)

	sent, err := svc.SendOTP(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, sender.to, "no mail for unknown accounts")
}

func TestSendOTPStoresCodeAndMails(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount()}
	sender := &fakeSender{}
	svc := NewOTPService(repo, sender, 2*time.Minute, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	sent, err := svc.SendOTP(context.Background(), "student@example.com")
	require.NoError(t, err)
	assert.True(t, sent)

	require.NotNil(t, repo.account.OtpCode)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), *repo.account.OtpCode)
	require.NotNil(t, repo.account.OtpExpiresAt)
	assert.Equal(t, base.Add(2*time.Minute), *repo.account.OtpExpiresAt)

	assert.Equal(t, "student@example.com", sender.to)
	assert.Contains(t, sender.body, *repo.account.OtpCode)
}

func TestSendOTPMailFailurePropagates(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount()}
	sender := &fakeSender{err: errors.New("relay refused")}
	svc := NewOTPService(repo, sender, 2*time.Minute, nil)

	sent, err := svc.SendOTP(context.Background(), "student@example.com")
	require.Error(t, err)
	assert.False(t, sent)
}

func TestVerifyOTPMatchWithinWindow(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount()}
	svc := NewOTPService(repo, &fakeSender{}, 2*time.Minute, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	code := "123456"
	expiry := base.Add(2 * time.Minute)
	repo.account.OtpCode = &code
	repo.account.OtpExpiresAt = &expiry

	valid, err := svc.VerifyOTP(context.Background(), "student@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, valid)

	// Verification does not consume the code.
	valid, err = svc.VerifyOTP(context.Background(), "student@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestVerifyOTPRejections(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	code := "123456"

	tests := []struct {
		name   string
		mutate func(a *models.Account)
		email  string
		code   string
	}{
		{
			name:   "unknown email",
			mutate: func(a *models.Account) {},
			email:  "nobody@example.com",
			code:   code,
		},
		{
			name:   "no code issued",
			mutate: func(a *models.Account) { a.OtpCode = nil; a.OtpExpiresAt = nil },
			email:  "student@example.com",
			code:   code,
		},
		{
			name:   "wrong code",
			mutate: func(a *models.Account) {},
			email:  "student@example.com",
			code:   "654321",
		},
		{
			name: "expired exactly at deadline",
			mutate: func(a *models.Account) {
				deadline := base
				a.OtpExpiresAt = &deadline
			},
			email: "student@example.com",
			code:  code,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeOTPRepo{account: otpAccount()}
			expiry := base.Add(2 * time.Minute)
			repo.account.OtpCode = &code
			repo.account.OtpExpiresAt = &expiry
			tc.mutate(repo.account)

			svc := NewOTPService(repo, &fakeSender{}, 2*time.Minute, nil)
			svc.now = func() time.Time { return base }

			valid, err := svc.VerifyOTP(context.Background(), tc.email, tc.code)
			require.NoError(t, err)
			assert.False(t, valid)
		})
	}
}

func TestResetPasswordClearsOTPState(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount()}
	svc := NewOTPService(repo, &fakeSender{}, 2*time.Minute, nil)

	code := "123456"
	expiry := time.Now().Add(time.Minute)
	repo.account.OtpCode = &code
	repo.account.OtpExpiresAt = &expiry

	done, err := svc.ResetPassword(context.Background(), "student@example.com", "new-secret")
	require.NoError(t, err)
	assert.True(t, done)

	assert.Equal(t, "acc-1", repo.resetID)
	assert.Nil(t, repo.account.OtpCode)
	assert.Nil(t, repo.account.OtpExpiresAt)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.resetHash), []byte("new-secret")))
}

func TestResetPasswordUnknownEmail(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount()}
	svc := NewOTPService(repo, &fakeSender{}, 2*time.Minute, nil)

	done, err := svc.ResetPassword(context.Background(), "nobody@example.com", "new-secret")
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, repo.resetID)
}

func TestResetPasswordStoreFailureKeepsOTP(t *testing.T) {
	repo := &fakeOTPRepo{account: otpAccount(), resetErr: errors.New("write failed")}
	svc := NewOTPService(repo, &fakeSender{}, 2*time.Minute, nil)

	code := "123456"
	expiry := time.Now().Add(time.Minute)
	repo.account.OtpCode = &code
	repo.account.OtpExpiresAt = &expiry

	done, err := svc.ResetPassword(context.Background(), "student@example.com", "new-secret")
	require.Error(t, err)
	assert.False(t, done)
	assert.NotNil(t, repo.account.OtpCode)
	assert.NotNil(t, repo.account.OtpExpiresAt)
}

func TestGenerateOTPCodeRange(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateOTPCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.GreaterOrEqual(t, code, "100000")
		assert.LessOrEqual(t, code, "999999")
	}
}
