package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
	"github.com/iho/goescrow/internal/usecase/mocks"
)

type reconciliationFixture struct {
	*ledgerFixture
	uc     *usecase.ReconciliationUseCase
	outbox *mocks.MockOutboxRepository
	locker *mocks.MockLocker
	port   *mocks.MockBlockchainPort
}

func newReconciliationFixture(t *testing.T, wallet string) *reconciliationFixture {
	t.Helper()

	lf := newLedgerFixture(t)
	f := &reconciliationFixture{
		ledgerFixture: lf,
		outbox:        mocks.NewMockOutboxRepository(),
		locker:        mocks.NewMockLocker(),
		port:          mocks.NewMockBlockchainPort(gomock.NewController(t)),
	}

	f.uc = usecase.NewReconciliationUseCase(
		lf.txManager,
		lf.accounts,
		lf.ledger,
		newTestOutbox(t, f.outbox, lf.clock),
		f.port,
		f.locker,
		nil,
		zerolog.Nop(),
		usecase.ReconciliationConfig{HotWalletAddress: wallet},
	).WithClock(lf.clock)

	return f
}

func (f *reconciliationFixture) fund(t *testing.T) {
	t.Helper()
	_, err := f.ledgerFixture.uc.Transfer(context.Background(), depositRequest("deposit:h1", "deal-1", 1000))
	require.NoError(t, err)
}

func TestReconciliationUseCase_Report(t *testing.T) {
	tests := []struct {
		name          string
		chainBalance  int64
		wantCovered   bool
		wantIssueSize int
	}{
		{name: "covered", chainBalance: 1500, wantCovered: true},
		{name: "exactly covered", chainBalance: 1000, wantCovered: true},
		{name: "under-collateralized", chainBalance: 999, wantCovered: false, wantIssueSize: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReconciliationFixture(t, hotWallet)
			f.fund(t)
			f.port.EXPECT().GetAddressBalance(gomock.Any(), hotWallet).Return(tt.chainBalance, nil)

			report, err := f.uc.GenerateReconciliationReport(context.Background())
			require.NoError(t, err)

			assert.True(t, report.LedgerConsistent)
			assert.Equal(t, int64(1000), report.LedgerLiabilities)
			assert.Equal(t, tt.chainBalance, report.ChainBalance)
			assert.Equal(t, tt.wantCovered, report.Covered)
			assert.Len(t, report.Issues, tt.wantIssueSize)
		})
	}
}

func TestReconciliationUseCase_DetectsInconsistency(t *testing.T) {
	f := newReconciliationFixture(t, "")
	f.ledger.CheckConsistencyFunc = func(context.Context) (decimal.Decimal, decimal.Decimal, error) {
		return decimal.NewFromInt(5), decimal.Zero, nil
	}

	report, err := f.uc.GenerateReconciliationReport(context.Background())
	require.NoError(t, err)
	assert.False(t, report.LedgerConsistent)
	assert.True(t, report.Covered)
	require.Len(t, report.Issues, 1)
	assert.Contains(t, report.Issues[0], "ledger inconsistency")
}

func TestReconciliationUseCase_ReportsBalanceDrift(t *testing.T) {
	f := newReconciliationFixture(t, "")
	f.fund(t)

	escrow := domain.EscrowAccount("deal-1")
	f.accounts.SetBalance(escrow, 1200)

	report, err := f.uc.GenerateReconciliationReport(context.Background())
	require.NoError(t, err)

	assert.False(t, report.LedgerConsistent)
	require.Len(t, report.Drift, 1)
	assert.Equal(t, escrow, report.Drift[0].Key)
	assert.Equal(t, int64(200), report.Drift[0].Difference())

	var driftIssue string
	for _, issue := range report.Issues {
		if strings.HasPrefix(issue, "balance drift") {
			driftIssue = issue
		}
	}
	assert.Equal(t, "balance drift on ESCROW:deal-1: balance=1200 entries=1000 diff=200", driftIssue)
}

func TestReconciliationUseCase_ChainError(t *testing.T) {
	f := newReconciliationFixture(t, hotWallet)
	f.port.EXPECT().GetAddressBalance(gomock.Any(), hotWallet).Return(int64(0), errors.New("rate limited"))

	_, err := f.uc.GenerateReconciliationReport(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindChainCallFailed, domain.KindOf(err))
}

func TestReconciliationUseCase_Run_PublishesResult(t *testing.T) {
	f := newReconciliationFixture(t, hotWallet)
	f.fund(t)
	f.port.EXPECT().GetAddressBalance(gomock.Any(), hotWallet).Return(int64(10), nil)

	report, err := f.uc.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.False(t, report.OK())

	events := f.outbox.ByType(domain.EventReconciliationResult)
	require.Len(t, events, 1)
	assert.Equal(t, domain.TopicLedger, events[0].Topic)

	var envelope domain.Envelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	var payload domain.ReconciliationResultPayload
	require.NoError(t, json.Unmarshal(envelope.Payload, &payload))
	assert.False(t, payload.Covered)
	assert.True(t, payload.Consistent)
	assert.Equal(t, int64(1000), payload.LedgerLiabilities)

	assert.False(t, f.locker.IsHeld(usecase.LockReconciliation))
}

func TestReconciliationUseCase_Run_SkipsWhenLockHeld(t *testing.T) {
	f := newReconciliationFixture(t, hotWallet)
	f.locker.Hold(usecase.LockReconciliation)

	report, err := f.uc.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Empty(t, f.outbox.All())
}
