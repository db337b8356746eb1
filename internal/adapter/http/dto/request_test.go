package dto

import (
	"testing"

	"github.com/iho/goescrow/internal/domain"
)

func TestReviewDepositRequest_Validate(t *testing.T) {
	tests := []struct {
		name          string
		request       ReviewDepositRequest
		requireReason bool
		expectError   bool
	}{
		{name: "approve with operator", request: ReviewDepositRequest{Operator: "alice"}},
		{name: "approve without operator", request: ReviewDepositRequest{Operator: "  "}, expectError: true},
		{name: "reject with reason", request: ReviewDepositRequest{Operator: "alice", Reason: "sanctioned source"}, requireReason: true},
		{name: "reject without reason", request: ReviewDepositRequest{Operator: "alice"}, requireReason: true, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate(tt.requireReason)
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error")
				}
				if domain.KindOf(err) != domain.KindInvalidArgument {
					t.Fatalf("expected invalid argument, got %s", domain.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
