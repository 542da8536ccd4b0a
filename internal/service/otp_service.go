package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ojt-labs/account-api/internal/models"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
	"github.com/ojt-labs/account-api/pkg/mailer"
)

type otpRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	SetOTP(ctx context.Context, id, code string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
}

// OTPService drives the one-time password reset flow: code issuance over
// email, verification, and the password reset that consumes the code.
type OTPService struct {
	repo   otpRepository
	sender mailer.Sender
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewOTPService constructs an OTPService instance.
func NewOTPService(repo otpRepository, sender mailer.Sender, ttl time.Duration, logger *zap.Logger) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &OTPService{repo: repo, sender: sender, ttl: ttl, logger: logger, now: time.Now}
}

// SendOTP generates a 6-digit code for the account, persists it with its
// expiry and emails it. An unknown email returns false without error so the
// endpoint does not distinguish it from a slow mailbox. A mail dispatch
// failure propagates to the caller.
func (s *OTPService) SendOTP(ctx context.Context, email string) (bool, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	code, err := generateOTPCode()
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate otp")
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.SetOTP(ctx, account.ID, code, expiresAt); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store otp")
	}

	subject := "This is your OTP code"
	body := fmt.Sprintf("Your OTP code is: %s. This OTP is valid in %d minutes.", code, int(s.ttl.Minutes()))
	if err := s.sender.Send(ctx, email, subject, body); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send otp email")
	}

	s.logger.Info("otp dispatched", zap.String("account_id", account.ID))
	return true, nil
}

// VerifyOTP reports whether the supplied code matches the stored one and has
// not expired. Verification does not consume the code: it stays valid until
// it expires or a password reset clears it.
func (s *OTPService) VerifyOTP(ctx context.Context, email, code string) (bool, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	if account.OtpCode == nil || account.OtpExpiresAt == nil {
		return false, nil
	}
	if *account.OtpCode != code {
		return false, nil
	}
	return account.OtpExpiresAt.After(s.now()), nil
}

// ResetPassword replaces the account password and clears the OTP state in
// the same store operation. When the store write fails the OTP fields stay
// untouched.
func (s *OTPService) ResetPassword(ctx context.Context, email, newPassword string) (bool, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch account")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	if err := s.repo.ResetPassword(ctx, account.ID, string(passwordHash)); err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset password")
	}

	s.logger.Info("password reset completed", zap.String("account_id", account.ID))
	return true, nil
}

// generateOTPCode draws a uniformly random code in [100000, 999999].
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
