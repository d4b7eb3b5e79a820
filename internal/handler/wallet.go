package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
)

type WalletHandler struct {
	service   WalletService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewWalletHandler(service WalletService, v *validator.Validate, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{service: service, validator: v, logger: logger}
}

// Balance handles GET /api/wallet/balance
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	balance, err := h.service.GetBalance(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, balanceView{Balance: response.Money(balance)})
}

// Transactions handles GET /api/wallet/transactions?limit=N
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	txs, err := h.service.ListTransactions(r.Context(), caller.UserID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newTransactionViews(txs))
}

// Deposit handles POST /api/wallet/deposit
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	var req domain.DepositRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	tx, err := h.service.Deposit(r.Context(), caller.UserID, req.Amount, req.IdempotencyKey)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, newTransactionView(tx))
}
