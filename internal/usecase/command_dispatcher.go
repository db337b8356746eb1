package usecase

import (
	"context"

	"github.com/iho/goescrow/internal/domain"
)

// PayoutRefundExecutor runs settlement commands.
type PayoutRefundExecutor interface {
	ExecutePayout(ctx context.Context, cmd domain.ExecutePayoutCommand) (*SettlementResult, error)
	ExecuteRefund(ctx context.Context, cmd domain.ExecuteRefundCommand) (*SettlementResult, error)
}

// DepositTracker starts watching expected deposits.
type DepositTracker interface {
	Watch(ctx context.Context, cmd domain.WatchDepositCommand) (*domain.TonTransaction, error)
}

// CommandDispatcher routes decoded inbound commands to their use case.
type CommandDispatcher struct {
	settlement PayoutRefundExecutor
	deposits   DepositTracker
}

// NewCommandDispatcher creates a new CommandDispatcher.
func NewCommandDispatcher(settlement PayoutRefundExecutor, deposits DepositTracker) *CommandDispatcher {
	return &CommandDispatcher{
		settlement: settlement,
		deposits:   deposits,
	}
}

// Dispatch executes cmd, a pointer produced by the command registry.
func (d *CommandDispatcher) Dispatch(ctx context.Context, cmd any) error {
	switch c := cmd.(type) {
	case *domain.ExecutePayoutCommand:
		_, err := d.settlement.ExecutePayout(ctx, *c)
		return err
	case *domain.ExecuteRefundCommand:
		_, err := d.settlement.ExecuteRefund(ctx, *c)
		return err
	case *domain.WatchDepositCommand:
		_, err := d.deposits.Watch(ctx, *c)
		return err
	default:
		return domain.NewError(domain.KindInvalidArgument, "unsupported command %T", cmd)
	}
}

// IsTerminal reports whether redelivering a command that failed with err
// cannot succeed.
func IsTerminal(err error) bool {
	switch domain.KindOf(err) {
	case domain.KindAmbiguousPriorAttempt, domain.KindInvalidArgument, domain.KindInsufficientBalance:
		return true
	default:
		return false
	}
}
