package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ojt-labs/account-api/internal/models"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
)

type directoryRepository interface {
	ListAll(ctx context.Context) ([]models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
	AddRole(ctx context.Context, accountID, role string) error
	RolesOf(ctx context.Context, accountID string) ([]string, error)
}

// CreateTeacherRequest represents the payload for creating teacher accounts.
type CreateTeacherRequest struct {
	Username        string   `json:"username" validate:"required,min=3"`
	Email           string   `json:"email" validate:"required,email"`
	Phone           string   `json:"phone" validate:"required"`
	Address         string   `json:"address" validate:"required"`
	Salary          *float64 `json:"salary" validate:"omitempty,gte=0"`
	Balance         *float64 `json:"balance" validate:"omitempty,gte=0"`
	Password        string   `json:"password" validate:"required,min=6"`
	ConfirmPassword string   `json:"confirm_password" validate:"required,eqfield=Password"`
}

// UpdateAccountRequest represents the payload for modifying accounts. The
// account is located by email; salary and balance follow a merge policy.
type UpdateAccountRequest struct {
	Username string   `json:"username" validate:"required,min=3"`
	Email    string   `json:"email" validate:"required,email"`
	Phone    string   `json:"phone" validate:"required"`
	Address  string   `json:"address" validate:"required"`
	Salary   *float64 `json:"salary" validate:"omitempty,gte=0"`
	Balance  *float64 `json:"balance" validate:"omitempty,gte=0"`
}

// DirectoryService answers account lookups, role listings, filtered listings
// and account administration.
type DirectoryService struct {
	repo      directoryRepository
	validator *validator.Validate
	logger    *zap.Logger
	pageSize  int
}

// NewDirectoryService creates an instance of DirectoryService.
func NewDirectoryService(repo directoryRepository, validate *validator.Validate, logger *zap.Logger, pageSize int) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if pageSize <= 0 {
		pageSize = 5
	}
	return &DirectoryService{repo: repo, validator: validate, logger: logger, pageSize: pageSize}
}

// PageSize reports the configured page size for paginated listings.
func (s *DirectoryService) PageSize() int {
	return s.pageSize
}

// ListAll returns every account.
func (s *DirectoryService) ListAll(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accounts")
	}
	return accounts, nil
}

// FindByID scans the full account set for an exact id match.
func (s *DirectoryService) FindByID(ctx context.Context, id string) (*models.Account, error) {
	accounts, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i], nil
		}
	}
	return nil, appErrors.ErrNotFound
}

// FindByEmail scans the full account set for an exact email match.
func (s *DirectoryService) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	accounts, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Email == email {
			return &accounts[i], nil
		}
	}
	return nil, appErrors.ErrNotFound
}

// ListByRole retains accounts whose role memberships contain the given role,
// compared case-insensitively. The result is never nil.
func (s *DirectoryService) ListByRole(ctx context.Context, role string) ([]models.Account, error) {
	accounts, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	result := []models.Account{}
	for _, account := range accounts {
		roles, err := s.repo.RolesOf(ctx, account.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load account roles")
		}
		if hasRole(roles, role) {
			result = append(result, account)
		}
	}
	return result, nil
}

// ListStudents returns every account holding the Student role.
func (s *DirectoryService) ListStudents(ctx context.Context) ([]models.Account, error) {
	return s.ListByRole(ctx, models.RoleStudent)
}

// ListFiltered applies, in order, the username substring filter, the salary
// bounds, the sort key and pagination. Unknown sort keys keep the default
// ascending-by-username order; pages at or below zero behave as page one.
func (s *DirectoryService) ListFiltered(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	accounts, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	filtered := accounts[:0:0]
	for _, account := range accounts {
		if filter.Search != "" && !strings.Contains(account.Username, filter.Search) {
			continue
		}
		if filter.MinSalary != nil && (account.Salary == nil || *account.Salary < *filter.MinSalary) {
			continue
		}
		if filter.MaxSalary != nil && (account.Salary == nil || *account.Salary > *filter.MaxSalary) {
			continue
		}
		filtered = append(filtered, account)
	}

	sortAccounts(filtered, filter.SortBy)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * s.pageSize
	if start >= len(filtered) {
		return []models.Account{}, nil
	}
	end := start + s.pageSize
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], nil
}

// CreateTeacher creates an account with the Teacher role. A duplicate email
// rejects the request before any store write happens.
func (s *DirectoryService) CreateTeacher(ctx context.Context, req CreateTeacherRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create teacher payload")
	}

	if _, err := s.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.ErrAlreadyExists
	} else if appErrors.FromError(err).Code != appErrors.ErrNotFound.Code {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	account := &models.Account{
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		Phone:        req.Phone,
		Address:      req.Address,
		Salary:       req.Salary,
		Balance:      req.Balance,
		PasswordHash: string(passwordHash),
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher account")
	}
	if err := s.repo.AddRole(ctx, account.ID, models.RoleTeacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to grant teacher role")
	}

	s.logger.Info("teacher account created", zap.String("account_id", account.ID))
	return account, nil
}

// Update locates an account by email and applies the modification. Username,
// email, phone and address are overwritten unconditionally; salary and
// balance only when the incoming value is present and non-zero.
func (s *DirectoryService) Update(ctx context.Context, req UpdateAccountRequest) (*models.Account, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	account, err := s.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	account.Username = req.Username
	account.Email = req.Email
	account.Phone = req.Phone
	account.Address = req.Address
	if req.Salary != nil && *req.Salary != 0 {
		account.Salary = req.Salary
	}
	if req.Balance != nil && *req.Balance != 0 {
		account.Balance = req.Balance
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update account")
	}
	return account, nil
}

// DeleteByID removes the account with the given id.
func (s *DirectoryService) DeleteByID(ctx context.Context, id string) error {
	account, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.delete(ctx, account)
}

// DeleteByEmail removes the account with the given email.
func (s *DirectoryService) DeleteByEmail(ctx context.Context, email string) error {
	account, err := s.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.delete(ctx, account)
}

func (s *DirectoryService) delete(ctx context.Context, account *models.Account) error {
	if err := s.repo.Delete(ctx, account.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	s.logger.Info("account deleted", zap.String("account_id", account.ID))
	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// sortAccounts orders by username ascending unless one of the recognised
// sort keys overrides it. Accounts without a salary sort before any salaried
// account in ascending order and after them in descending order.
func sortAccounts(accounts []models.Account, sortBy string) {
	less := func(a, b models.Account) bool {
		return a.Username < b.Username
	}

	switch sortBy {
	case "UserName_desc":
		less = func(a, b models.Account) bool {
			return a.Username > b.Username
		}
	case "Salary_asc":
		less = func(a, b models.Account) bool {
			return salaryOf(a) < salaryOf(b)
		}
	case "Salary_desc":
		less = func(a, b models.Account) bool {
			return salaryOf(a) > salaryOf(b)
		}
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		return less(accounts[i], accounts[j])
	})
}

func salaryOf(account models.Account) float64 {
	if account.Salary == nil {
		return -1
	}
	return *account.Salary
}
