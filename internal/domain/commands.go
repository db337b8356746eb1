package domain

// Inbound command names.
const (
	CommandExecutePayout = "escrow.execute-payout.v1"
	CommandExecuteRefund = "escrow.execute-refund.v1"
	CommandWatchDeposit  = "escrow.watch-deposit.v1"
)

// ExecutePayoutCommand releases escrow to the channel owner.
type ExecutePayoutCommand struct {
	DealID         string `json:"dealId"`
	OwnerID        string `json:"ownerId"`
	Amount         int64  `json:"amountNano"`
	Commission     int64  `json:"commissionNano"`
	SubwalletIndex int32  `json:"subwalletIndex"`
}

// ExecuteRefundCommand returns escrow to the advertiser.
type ExecuteRefundCommand struct {
	DealID         string `json:"dealId"`
	AdvertiserID   string `json:"advertiserId"`
	Amount         int64  `json:"amountNano"`
	SubwalletIndex int32  `json:"subwalletIndex"`
}

// WatchDepositCommand starts tracking an expected deposit.
type WatchDepositCommand struct {
	DealID         string `json:"dealId"`
	DepositAddress string `json:"depositAddress"`
	ExpectedAmount int64  `json:"expectedAmountNano"`
	SubwalletIndex int32  `json:"subwalletIndex"`
}
