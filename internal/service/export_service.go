package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ojt-labs/account-api/internal/models"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
	"github.com/ojt-labs/account-api/pkg/export"
)

type exportLister interface {
	ListAll(ctx context.Context) ([]models.Account, error)
}

// ExportService renders directory snapshots as CSV or PDF downloads.
type ExportService struct {
	lister exportLister
	logger *zap.Logger
}

// NewExportService constructs an ExportService instance.
func NewExportService(lister exportLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{lister: lister, logger: logger}
}

// Export returns the rendered document and its content type for the given
// format ("csv" or "pdf").
func (s *ExportService) Export(ctx context.Context, format string) ([]byte, string, error) {
	accounts, err := s.lister.ListAll(ctx)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accounts")
	}

	dataset := buildAccountDataset(accounts)

	switch format {
	case "csv":
		data, err := export.CSV(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	case "pdf":
		data, err := export.PDF(dataset, "Account Directory")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func buildAccountDataset(accounts []models.Account) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"ID", "Email", "Username", "Phone", "Address", "Salary", "Balance", "Created At"},
	}
	for _, account := range accounts {
		dataset.Rows = append(dataset.Rows, []string{
			account.ID,
			account.Email,
			account.Username,
			account.Phone,
			account.Address,
			formatAmount(account.Salary),
			formatAmount(account.Balance),
			account.CreatedAt.Format(time.RFC3339),
		})
	}
	return dataset
}

func formatAmount(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
