package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"digistore/internal/services"
	"digistore/internal/storage"
)

// AuthHandler handles HTTP requests for accounts and authentication.
type AuthHandler struct {
	service  *services.AuthService
	validate *validator.Validate
	log      *logrus.Entry
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service *services.AuthService, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		validate: validator.New(),
		log:      log.WithField("handler", "auth"),
	}
}

// RegisterRoutes registers public auth routes and account-management routes
// behind the authenticated router.
func (h *AuthHandler) RegisterRoutes(public, authed fiber.Router) {
	auth := public.Group("/auth")
	auth.Post("/register", h.HandleRegister)
	auth.Post("/login", h.HandleLogin)
	auth.Post("/verify", h.HandleVerify)
	auth.Post("/verify/request", h.HandleRequestVerification)

	account := authed.Group("/account")
	account.Put("/profile", h.HandleUpdateProfile)
	account.Put("/password", h.HandleChangePassword)
	account.Delete("/", h.HandleDeleteAccount)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

// HandleRegister creates an account and issues a verification code.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	user, err := h.service.Register(c.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Email already registered",
			})
		}
		h.log.WithError(err).Error("failed to register user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not register user",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates and returns the user plus a bearer token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	user, token, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
		})
	}
	return c.JSON(fiber.Map{
		"user":  user,
		"token": token,
	})
}

type verifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6"`
}

// HandleVerify checks a verification code and marks the email verified.
func (h *AuthHandler) HandleVerify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	if err := h.service.VerifyEmail(c.Context(), req.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Account not found",
			})
		case errors.Is(err, services.ErrInvalidCode):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "Invalid or expired verification code",
			})
		}
		h.log.WithError(err).Error("failed to verify email")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not verify email",
		})
	}
	return c.JSON(fiber.Map{"message": "Email verified"})
}

// HandleRequestVerification re-issues a verification code.
func (h *AuthHandler) HandleRequestVerification(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	if err := h.service.RequestVerification(c.Context(), req.Email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Account not found",
			})
		}
		h.log.WithError(err).Error("failed to request verification")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not send verification code",
		})
	}
	return c.JSON(fiber.Map{"message": "Verification code sent"})
}

type updateProfileRequest struct {
	Name  string `json:"name" validate:"omitempty,min=2,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

// HandleUpdateProfile changes the caller's name and/or email.
func (h *AuthHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	user, err := h.service.UpdateProfile(c.Context(), userID, req.Name, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Account not found",
			})
		case errors.Is(err, services.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Email already registered",
			})
		}
		h.log.WithError(err).Error("failed to update profile")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not update profile",
		})
	}
	return c.JSON(user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// HandleChangePassword rotates the caller's password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	if err := h.service.ChangePassword(c.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Current password is incorrect",
			})
		}
		h.log.WithError(err).Error("failed to change password")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not change password",
		})
	}
	return c.JSON(fiber.Map{"message": "Password updated"})
}

// HandleDeleteAccount removes the caller's account after a password check.
func (h *AuthHandler) HandleDeleteAccount(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	var req struct {
		Password string `json:"password" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErrors(err),
		})
	}

	if err := h.service.DeleteAccount(c.Context(), userID, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Password is incorrect",
			})
		}
		h.log.WithError(err).Error("failed to delete account")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not delete account",
		})
	}
	return c.JSON(fiber.Map{"message": "Account deleted"})
}
