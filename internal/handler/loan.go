package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
)

type LoanHandler struct {
	loans     LoanService
	approval  ApprovalService
	validator *validator.Validate
	logger    *slog.Logger
}

func NewLoanHandler(loans LoanService, approval ApprovalService, v *validator.Validate, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{loans: loans, approval: approval, validator: v, logger: logger}
}

// Apply handles POST /api/loans/apply
func (h *LoanHandler) Apply(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	var req domain.ApplyLoanRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	loan, err := h.loans.Apply(r.Context(), caller.UserID, req.PrincipalAmount, req.TenureMonths, req.InterestRate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Created(w, newLoanView(loan))
}

// CalculateEMI handles POST /api/loans/calculate-emi
func (h *LoanHandler) CalculateEMI(w http.ResponseWriter, r *http.Request) {
	var req domain.CalculateEMIRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	quote, err := h.loans.CalculateEMI(req.PrincipalAmount, req.TenureMonths, req.InterestRate)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newQuoteView(quote))
}

// MyLoans handles GET /api/loans/my-loans
func (h *LoanHandler) MyLoans(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	loans, err := h.loans.ListForUser(r.Context(), caller.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newLoanViews(loans))
}

// Get handles GET /api/loans/{loanId}
func (h *LoanHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	loan, err := h.loans.Get(r.Context(), caller, loanID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newLoanView(loan))
}

// Schedule handles GET /api/loans/{loanId}/schedule
func (h *LoanHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	loanID, err := pathUUID(r, "loanId")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	schedule, err := h.loans.Schedule(r.Context(), caller, loanID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newScheduleView(schedule))
}

// Pending handles GET /api/loans/admin/pending
func (h *LoanHandler) Pending(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	loans, err := h.loans.ListPending(r.Context(), caller)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newLoanViews(loans))
}

// Decide handles POST /api/loans/admin/approve
func (h *LoanHandler) Decide(w http.ResponseWriter, r *http.Request) {
	caller, _ := contextGetIdentity(r)

	var req domain.DecideLoanRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	loan, err := h.approval.Decide(r.Context(), caller, req.LoanID, *req.Approved, req.RejectionReason)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response.Success(w, newLoanView(loan))
}
