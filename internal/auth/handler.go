package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lakay-market/storefront/internal/identity"
	"github.com/lakay-market/storefront/internal/wallet"
)

// Handler exposes auth endpoints for register/login/refresh/logout.
type Handler struct {
	ids     *identity.Service
	svc     *Service
	wallets *wallet.Service
	logger  *slog.Logger
}

// NewHandler wires the auth handler.
func NewHandler(ids *identity.Service, svc *Service, wallets *wallet.Service, logger *slog.Logger) *Handler {
	return &Handler{ids: ids, svc: svc, wallets: wallets, logger: logger}
}

type loginResponse struct {
	UserID       string `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	WalletID     string `json:"wallet_id,omitempty"`
}

// Register creates a customer and provisions their store-credit wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req identity.Registration
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Register(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var walletID string
	if h.wallets != nil {
		w, err := h.wallets.Create(c.UserContext(), wallet.CreateInput{OwnerID: user.ID})
		if err != nil {
			h.logger.Error("wallet provisioning failed", slog.String("user_id", user.ID), slog.Any("error", err))
		} else {
			walletID = w.ID
		}
	}
	h.logger.Info("customer registered",
		slog.String("user_id", user.ID),
		slog.String("wallet_id", walletID),
	)
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"user_id":   user.ID,
		"phone":     user.Phone,
		"name":      user.Name,
		"wallet_id": walletID,
	})
}

// Login validates credentials and returns a token pair.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req identity.Credentials
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.ids.Authenticate(c.UserContext(), req)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	pair, err := h.svc.Login(user)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	var wid string
	if h.wallets != nil {
		if w, err := h.wallets.GetByOwner(c.UserContext(), user.ID); err == nil {
			wid = w.ID
		}
	}
	return c.Status(http.StatusOK).JSON(loginResponse{UserID: user.ID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, ExpiresIn: pair.ExpiresIn, WalletID: wid})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh issues a new access token using a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	token, exp, err := h.svc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access_token": token, "expires_in": exp})
}

// Logout invalidates the caller's existing tokens by bumping the token version.
func (h *Handler) Logout(c *fiber.Ctx) error {
	uid := UserID(c)
	if uid == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.svc.Logout(c.UserContext(), uid); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}
