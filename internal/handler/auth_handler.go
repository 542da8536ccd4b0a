package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ojt-labs/account-api/internal/models"
	"github.com/ojt-labs/account-api/internal/service"
	appErrors "github.com/ojt-labs/account-api/pkg/errors"
	"github.com/ojt-labs/account-api/pkg/response"
)

// AuthHandler exposes sign-up, sign-in and the OTP password reset flow.
type AuthHandler struct {
	security *service.SecurityService
	otp      *service.OTPService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(security *service.SecurityService, otp *service.OTPService) *AuthHandler {
	return &AuthHandler{security: security, otp: otp}
}

// SignUpStudent godoc
// @Summary Register a student account
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body service.SignUpStudentRequest true "Sign-up payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /auth/students/sign-up [post]
func (h *AuthHandler) SignUpStudent(c *gin.Context) {
	var req service.SignUpStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-up payload"))
		return
	}

	account, err := h.security.SignUpStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, account)
}

// SignIn godoc
// @Summary Authenticate and issue a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.SignInRequest true "Credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 401 {object} response.ErrorBody
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sign-in payload"))
		return
	}

	token, err := h.security.SignIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, token, nil)
}

// SendOTP godoc
// @Summary Send a one-time reset code by email
// @Description Always succeeds with a boolean result; an unknown email is
// @Description reported as false without sending mail.
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.SendOTPRequest true "Target email"
// @Success 200 {object} response.Envelope
// @Router /auth/otp/send [post]
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req models.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid email payload"))
		return
	}

	sent, err := h.otp.SendOTP(c.Request.Context(), req.Email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"sent": sent}, nil)
}

// VerifyOTP godoc
// @Summary Verify a one-time reset code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.VerifyOTPRequest true "Email and code"
// @Success 200 {object} response.Envelope
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verification payload"))
		return
	}

	valid, err := h.otp.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"valid": valid}, nil)
}

// ResetPassword godoc
// @Summary Replace the account password
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.ResetPasswordRequest true "Email and new password"
// @Success 200 {object} response.Envelope
// @Router /auth/password/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset payload"))
		return
	}

	done, err := h.otp.ResetPassword(c.Request.Context(), req.Email, req.NewPassword)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"reset": done}, nil)
}
