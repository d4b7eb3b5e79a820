package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
)

type RepaymentHandler struct {
	service   RepaymentService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewRepaymentHandler(service RepaymentService, v *validator.Validate, logger *slog.Logger) *RepaymentHandler {
	return &RepaymentHandler{service: service, validator: v, logger: logger}
}

// MakePayment handles POST /api/repayments/make-payment. A replayed
// idempotency key answers 200 with the original result.
func (h *RepaymentHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	var req domain.MakePaymentRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.service.Pay(r.Context(), caller.UserID, req.LoanID, req.Amount, req.IdempotencyKey)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if result.Replayed {
		response.Success(w, newPaymentView(result))
		return
	}
	response.Created(w, newPaymentView(result))
}

// ForLoan handles GET /api/repayments/loan/{loanId}
func (h *RepaymentHandler) ForLoan(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	repayments, err := h.service.ListForLoan(r.Context(), caller, loanID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	views := make([]repaymentView, 0, len(repayments))
	for _, rep := range repayments {
		views = append(views, newRepaymentView(rep))
	}
	response.Success(w, views)
}
