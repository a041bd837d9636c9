package handlers

import (
	"errors"

	"fluxpay/internal/models"
	"fluxpay/internal/repositories"
	"fluxpay/internal/services/funding"
	"fluxpay/internal/services/ledger"
	"fluxpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WalletHandler struct {
	ledger  ledger.Service
	funding *funding.Service
}

func NewWalletHandler(ledgerService ledger.Service, fundingService *funding.Service) *WalletHandler {
	return &WalletHandler{
		ledger:  ledgerService,
		funding: fundingService,
	}
}

// extractUserClaims is a helper to fetch the authenticated identity.
func extractUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}

func (h *WalletHandler) GetBalances(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	balances, err := h.ledger.GetBalances(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return response.NotFound(c, "wallet not found")
		}
		if errors.Is(err, repositories.ErrWalletClosed) {
			return response.UnprocessableEntity(c, "wallet is closed")
		}
		return response.ServerError(c, "failed to get balances")
	}

	out := make([]fiber.Map, 0, len(balances))
	for _, b := range balances {
		out = append(out, fiber.Map{
			"currency": b.Currency,
			"amount":   b.Amount,
		})
	}
	return response.Success(c, fiber.Map{"balances": out})
}

func (h *WalletHandler) CloseWallet(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	if err := h.ledger.CloseWallet(c.Context(), claims.UserID); err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return response.NotFound(c, "wallet not found")
		}
		if errors.Is(err, repositories.ErrWalletClosed) {
			return response.UnprocessableEntity(c, "wallet is already closed")
		}
		return response.ServerError(c, "failed to close wallet")
	}
	return response.Success(c, fiber.Map{"message": "wallet closed"})
}

func (h *WalletHandler) TopUp(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		CardToken   string          `json:"card_token"`
		Description string          `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.CardToken == "" {
		return response.BadRequest(c, "card_token is required")
	}

	outcome, err := h.funding.TopUp(c.Context(), funding.TopUpRequest{
		UserID:      claims.UserID,
		CardToken:   input.CardToken,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
	})
	if err != nil {
		if errors.Is(err, funding.ErrCurrencyNotChargeable) || errors.Is(err, funding.ErrAmountPrecision) {
			return response.BadRequest(c, err.Error())
		}
		return mapOperationError(c, err)
	}
	return response.Success(c, outcomePayload(outcome))
}
