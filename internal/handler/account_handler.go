package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ojt-labs/account-api/internal/cache"
	"github.com/ojt-labs/account-api/internal/models"
	"github.com/ojt-labs/account-api/internal/service"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
	"github.com/ojt-labs/account-api/pkg/response"
)

// AccountHandler wires HTTP endpoints to the account directory. Every
// listing endpoint reads through the shared account list cache: a hit from
// one listing shape is served for all of them until the slot expires.
type AccountHandler struct {
	directory *service.DirectoryService
	exporter  *service.ExportService
	listCache *cache.AccountListCache
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(directory *service.DirectoryService, exporter *service.ExportService, listCache *cache.AccountListCache) *AccountHandler {
	return &AccountHandler{directory: directory, exporter: exporter, listCache: listCache}
}

// CreateTeacher godoc
// @Summary Create teacher account
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body service.CreateTeacherRequest true "Teacher payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /accounts/teachers [post]
func (h *AccountHandler) CreateTeacher(c *gin.Context) {
	var req service.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid teacher payload"))
		return
	}

	account, err := h.directory.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, account)
}

// Update godoc
// @Summary Update account
// @Description Update an account located by email
// @Tags Accounts
// @Accept json
// @Produce json
// @Param payload body service.UpdateAccountRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /accounts [put]
func (h *AccountHandler) Update(c *gin.Context) {
	var req service.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	account, err := h.directory.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, account, nil)
}

// SearchByID godoc
// @Summary Search account by id
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /accounts/search/by-id/{id} [get]
func (h *AccountHandler) SearchByID(c *gin.Context) {
	account, err := h.directory.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// SearchByEmail godoc
// @Summary Search account by email
// @Tags Accounts
// @Produce json
// @Param email path string true "Account email"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.ErrorBody
// @Router /accounts/search/by-email/{email} [get]
func (h *AccountHandler) SearchByEmail(c *gin.Context) {
	account, err := h.directory.FindByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, account, nil)
}

// List godoc
// @Summary List all accounts
// @Tags Accounts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	accounts, _, err := h.listCache.GetOrFill(c.Request.Context(), func(ctx context.Context) ([]models.Account, error) {
		return h.directory.ListAll(ctx)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, nil)
}

// ListStudents godoc
// @Summary List student accounts
// @Tags Accounts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /accounts/students [get]
func (h *AccountHandler) ListStudents(c *gin.Context) {
	accounts, _, err := h.listCache.GetOrFill(c.Request.Context(), func(ctx context.Context) ([]models.Account, error) {
		return h.directory.ListStudents(ctx)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, nil)
}

// ListByRole godoc
// @Summary List accounts by role
// @Tags Accounts
// @Produce json
// @Param role path string true "Role name"
// @Success 200 {object} response.Envelope
// @Router /accounts/role/{role} [get]
func (h *AccountHandler) ListByRole(c *gin.Context) {
	role := c.Param("role")
	accounts, _, err := h.listCache.GetOrFill(c.Request.Context(), func(ctx context.Context) ([]models.Account, error) {
		return h.directory.ListByRole(ctx, role)
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, accounts, nil)
}

// ListConfigured godoc
// @Summary List accounts with filtering, sorting and pagination
// @Tags Accounts
// @Produce json
// @Param search query string false "Username substring"
// @Param from_salary query number false "Minimum salary"
// @Param to_salary query number false "Maximum salary"
// @Param sort_by query string false "Sort key"
// @Param page query int false "Page number"
// @Success 200 {object} response.Envelope
// @Router /accounts/configuration [get]
func (h *AccountHandler) ListConfigured(c *gin.Context) {
	filter := parseAccountFilter(c)
	accounts, _, err := h.listCache.GetOrFill(c.Request.Context(), func(ctx context.Context) ([]models.Account, error) {
		return h.directory.ListFiltered(ctx, filter)
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	response.JSON(c, http.StatusOK, accounts, &models.Pagination{Page: page, PageSize: h.directory.PageSize()})
}

// DeleteByID godoc
// @Summary Delete account by id
// @Tags Accounts
// @Produce json
// @Param id path string true "Account ID"
// @Success 204 "No Content"
// @Failure 404 {object} response.ErrorBody
// @Router /accounts/by-id/{id} [delete]
func (h *AccountHandler) DeleteByID(c *gin.Context) {
	if err := h.directory.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteByEmail godoc
// @Summary Delete account by email
// @Tags Accounts
// @Produce json
// @Param email path string true "Account email"
// @Success 204 "No Content"
// @Failure 404 {object} response.ErrorBody
// @Router /accounts/by-email/{email} [delete]
func (h *AccountHandler) DeleteByEmail(c *gin.Context) {
	if err := h.directory.DeleteByEmail(c.Request.Context(), c.Param("email")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the account directory
// @Tags Accounts
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorBody
// @Router /accounts/export [get]
func (h *AccountHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")

	data, contentType, err := h.exporter.Export(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=accounts.%s", format))
	c.Data(http.StatusOK, contentType, data)
}

func parseAccountFilter(c *gin.Context) models.AccountFilter {
	var filter models.AccountFilter

	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")

	if raw := c.Query("from_salary"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MinSalary = &v
		}
	}
	if raw := c.Query("to_salary"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.MaxSalary = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}

	return filter
}
