package routes

import (
	"fluxpay/internal/handlers"
	"fluxpay/internal/middleware"
	"fluxpay/internal/models"

	"github.com/gofiber/fiber/v2"
)

type Handlers struct {
	Wallet      *handlers.WalletHandler
	Transaction *handlers.TransactionHandler
	Scan        *handlers.ScanHandler
}

func SetupRoutes(app *fiber.App, h Handlers) {
	api := app.Group("/api", middleware.Auth)

	wallet := api.Group("/wallet")
	wallet.Get("/balances", middleware.RequirePermission(models.PermissionWalletRead), h.Wallet.GetBalances)
	wallet.Post("/topup", middleware.RequirePermission(models.PermissionWalletWrite), h.Wallet.TopUp)
	wallet.Delete("/", middleware.RequirePermission(models.PermissionWalletWrite), h.Wallet.CloseWallet)

	tx := api.Group("/transactions")
	tx.Post("/deposit", middleware.RequirePermission(models.PermissionTransactionWrite), h.Transaction.Deposit)
	tx.Post("/withdraw", middleware.RequirePermission(models.PermissionTransactionWrite), h.Transaction.Withdraw)
	tx.Post("/transfer", middleware.RequirePermission(models.PermissionTransactionWrite), h.Transaction.Transfer)
	tx.Get("/", middleware.RequirePermission(models.PermissionTransactionRead), h.Transaction.History)

	api.Post("/admin/scan", middleware.RequirePermission(models.PermissionScanRun), h.Scan.Run)
}
