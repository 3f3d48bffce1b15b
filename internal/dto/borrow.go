package dto

// CreateBorrowRequest opens a new ledger record for the authenticated
// student. Mode defaults to self_service when omitted.
type CreateBorrowRequest struct {
	BookID int64  `json:"book_id" validate:"required,gt=0"`
	Mode   string `json:"mode" validate:"omitempty,oneof=self_service request"`
}

// ReviewBorrowRequest approves or rejects a pending request.
type ReviewBorrowRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

// ReturnBorrowRequest completes a loan. FineOverride, when present, replaces
// the computed late fine.
type ReturnBorrowRequest struct {
	FineOverride *int64 `json:"fine_override" validate:"omitempty,gte=0"`
}
