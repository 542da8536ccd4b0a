package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojt-labs/account-api/internal/cache"
	"github.com/ojt-labs/account-api/internal/models"
	"github.com/ojt-labs/account-api/internal/service"
)

type stubDirectoryRepo struct {
	accounts []models.Account
	roles    map[string][]string
	listed   int
}

func (s *stubDirectoryRepo) ListAll(context.Context) ([]models.Account, error) {
	s.listed++
	return s.accounts, nil
}

func (s *stubDirectoryRepo) Create(_ context.Context, account *models.Account) error {
	account.ID = "acc-new"
	s.accounts = append(s.accounts, *account)
	return nil
}

func (s *stubDirectoryRepo) Update(context.Context, *models.Account) error { return nil }

func (s *stubDirectoryRepo) Delete(context.Context, string) error { return nil }

func (s *stubDirectoryRepo) AddRole(context.Context, string, string) error { return nil }

func (s *stubDirectoryRepo) RolesOf(_ context.Context, accountID string) ([]string, error) {
	return s.roles[accountID], nil
}

func newDirectoryFixture() *stubDirectoryRepo {
	return &stubDirectoryRepo{
		accounts: []models.Account{
			{ID: "acc-1", Email: "ann@example.com", Username: "ann"},
			{ID: "acc-2", Email: "bob@example.com", Username: "bob"},
		},
		roles: map[string][]string{
			"acc-1": {models.RoleTeacher},
			"acc-2": {models.RoleStudent},
		},
	}
}

func newAccountRouter(repo *stubDirectoryRepo) (*gin.Engine, *cache.AccountListCache) {
	gin.SetMode(gin.TestMode)

	directory := service.NewDirectoryService(repo, nil, nil, 5)
	exporter := service.NewExportService(repo, nil)
	listCache := cache.NewAccountListCache(time.Minute, time.Hour, nil, nil)
	h := NewAccountHandler(directory, exporter, listCache)

	r := gin.New()
	r.GET("/accounts", h.List)
	r.GET("/accounts/students", h.ListStudents)
	r.GET("/accounts/configuration", h.ListConfigured)
	r.GET("/accounts/search/by-id/:id", h.SearchByID)
	r.GET("/accounts/export", h.Export)
	return r, listCache
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListServesThroughCache(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ann@example.com")
	firstListed := repo.listed

	w = get(r, "/accounts")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, firstListed, repo.listed, "second request is a cache hit")
}

func TestListingShapesShareOneSlot(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts")
	require.Equal(t, http.StatusOK, w.Code)

	// The students listing reuses the slot filled by the full listing, so
	// it serves the full set until the slot expires.
	w = get(r, "/accounts/students")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ann@example.com")
}

func TestListStudentsFillsWhenSlotEmpty(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts/students")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bob@example.com")
	assert.NotContains(t, w.Body.String(), "ann@example.com")
}

func TestListConfiguredReturnsPagination(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts/configuration?page=0")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 1, body.Pagination.Page, "page zero clamps to one")
	assert.Equal(t, 5, body.Pagination.PageSize)
}

func TestSearchByIDNotFound(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts/search/by-id/acc-99")
	require.Equal(t, http.StatusNotFound, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(http.StatusNotFound), body["statusCode"])
	assert.Equal(t, "user not found", body["message"])
}

func TestExportCSVDownload(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts/export?format=csv")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=accounts.csv", w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "ann@example.com")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	repo := newDirectoryFixture()
	r, _ := newAccountRouter(repo)

	w := get(r, "/accounts/export?format=xlsx")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
