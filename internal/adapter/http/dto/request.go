package dto

import (
	"strings"

	"github.com/iho/goescrow/internal/domain"
)

// ReviewDepositRequest is the body of deposit approve and reject calls.
type ReviewDepositRequest struct {
	Operator string `json:"operator"`
	Reason   string `json:"reason,omitempty"`
}

// Validate checks the request. Rejections must carry a reason.
func (r *ReviewDepositRequest) Validate(requireReason bool) error {
	if strings.TrimSpace(r.Operator) == "" {
		return domain.NewError(domain.KindInvalidArgument, "operator is required")
	}
	if requireReason && strings.TrimSpace(r.Reason) == "" {
		return domain.NewError(domain.KindInvalidArgument, "reason is required")
	}
	return nil
}

// UpsertPayoutAddressRequest sets a user's payout address.
type UpsertPayoutAddressRequest struct {
	Address string `json:"address"`
}
