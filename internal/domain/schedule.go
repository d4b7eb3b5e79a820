package domain

import (
	"github.com/google/uuid"

	"github.com/segyhp/lending-engine/pkg/emi"
)

// ScheduleResponse is the amortization view of a loan.
type ScheduleResponse struct {
	LoanID   uuid.UUID         `json:"loan_id"`
	Quote    emi.Quote         `json:"quote"`
	Schedule []emi.Installment `json:"schedule"`
}
