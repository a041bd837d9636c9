package handlers

import (
	"errors"
	"time"

	"fluxpay/internal/repositories"
	"fluxpay/internal/services/ledger"
	"fluxpay/internal/services/processor"
	"fluxpay/internal/utils/pagination"
	"fluxpay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type TransactionHandler struct {
	processor processor.Service
	ledger    ledger.Service
}

func NewTransactionHandler(proc processor.Service, ledgerService ledger.Service) *TransactionHandler {
	return &TransactionHandler{
		processor: proc,
		ledger:    ledgerService,
	}
}

type operationInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
}

func (h *TransactionHandler) Deposit(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input operationInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	outcome, err := h.processor.Deposit(c.Context(), processor.DepositRequest{
		UserID:      claims.UserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
	})
	if err != nil {
		return mapOperationError(c, err)
	}
	return response.Success(c, outcomePayload(outcome))
}

func (h *TransactionHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input operationInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	outcome, err := h.processor.Withdraw(c.Context(), processor.WithdrawRequest{
		UserID:      claims.UserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
	})
	if err != nil {
		return mapOperationError(c, err)
	}
	return response.Success(c, outcomePayload(outcome))
}

func (h *TransactionHandler) Transfer(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	var input struct {
		operationInput
		DestUserID uint `json:"dest_user_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}

	outcome, err := h.processor.Transfer(c.Context(), processor.TransferRequest{
		SourceUserID: claims.UserID,
		DestUserID:   input.DestUserID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		Description:  input.Description,
	})
	if err != nil {
		return mapOperationError(c, err)
	}
	return response.Success(c, outcomePayload(outcome))
}

func (h *TransactionHandler) History(c *fiber.Ctx) error {
	claims, err := extractUserClaims(c)
	if err != nil {
		return response.Unauthorized(c)
	}

	filter := repositories.TransactionFilter{UserID: &claims.UserID}
	if kind := c.Query("kind"); kind != "" {
		filter.Kind = kind
	}
	if flagged := c.QueryBool("flagged", false); c.Query("flagged") != "" {
		filter.Flagged = &flagged
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}

	p := pagination.ParseFromRequest(c)
	records, total, err := h.ledger.History(c.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		return response.ServerError(c, "failed to query history")
	}
	p.Total = total
	return c.JSON(pagination.Response(p, records))
}

func mapOperationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, processor.ErrInvalidAmount),
		errors.Is(err, processor.ErrUnsupportedCurrency),
		errors.Is(err, processor.ErrSelfTransfer),
		errors.Is(err, processor.ErrDescriptionTooLong):
		return response.BadRequest(c, err.Error())
	case errors.Is(err, repositories.ErrWalletNotFound):
		return response.NotFound(c, "wallet not found")
	case errors.Is(err, repositories.ErrInsufficientFunds):
		return response.UnprocessableEntity(c, "insufficient funds")
	case errors.Is(err, repositories.ErrWalletClosed):
		return response.UnprocessableEntity(c, "wallet is closed")
	case errors.Is(err, repositories.ErrTransientConflict):
		return response.Conflict(c, "operation conflicted with a concurrent update, retry")
	default:
		return response.ServerError(c, "operation failed")
	}
}

func outcomePayload(outcome *processor.Outcome) fiber.Map {
	payload := fiber.Map{
		"record_id":   outcome.RecordID,
		"reference":   outcome.Reference,
		"kind":        outcome.Kind,
		"amount":      outcome.Amount,
		"currency":    outcome.Currency,
		"status":      outcome.Status,
		"flagged":     outcome.Flagged,
		"new_balance": outcome.NewBalance,
	}
	if outcome.FlagReason != "" {
		payload["flag_reason"] = outcome.FlagReason
	}
	if outcome.DestBalance != nil {
		payload["dest_balance"] = outcome.DestBalance
	}
	return payload
}
