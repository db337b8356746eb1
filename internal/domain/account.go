package domain

import (
	"sort"
	"strings"
	"time"
)

// AccountType is the prefix of an account key.
type AccountType string

const (
	AccountPlatformTreasury AccountType = "PLATFORM_TREASURY"
	AccountExternalTON      AccountType = "EXTERNAL_TON"
	AccountNetworkFees      AccountType = "NETWORK_FEES"
	AccountDustWriteOff     AccountType = "DUST_WRITEOFF"

	AccountEscrow         AccountType = "ESCROW"
	AccountOwnerPending   AccountType = "OWNER_PENDING"
	AccountRefundPending  AccountType = "REFUND_PENDING"
	AccountCommission     AccountType = "COMMISSION"
	AccountOverpayment    AccountType = "OVERPAYMENT"
	AccountPartialDeposit AccountType = "PARTIAL_DEPOSIT"
	AccountLateDeposit    AccountType = "LATE_DEPOSIT"
)

const accountKeySeparator = ":"

var singletonTypes = map[AccountType]bool{
	AccountPlatformTreasury: true,
	AccountExternalTON:      true,
	AccountNetworkFees:      true,
	AccountDustWriteOff:     true,
}

var parameterizedTypes = map[AccountType]bool{
	AccountEscrow:         true,
	AccountOwnerPending:   true,
	AccountRefundPending:  true,
	AccountCommission:     true,
	AccountOverpayment:    true,
	AccountPartialDeposit: true,
	AccountLateDeposit:    true,
}

// AllowsNegative reports whether balances of this type may drop below zero.
// Contra accounts stand for the outside world and carry the other side of real flows.
func (t AccountType) AllowsNegative() bool {
	switch t {
	case AccountExternalTON, AccountNetworkFees, AccountDustWriteOff:
		return true
	default:
		return false
	}
}

// IsLiability reports whether funds on accounts of this type are owed to someone
// and must be backed by the hot wallet.
func (t AccountType) IsLiability() bool {
	switch t {
	case AccountEscrow, AccountOwnerPending, AccountRefundPending, AccountOverpayment, AccountPartialDeposit,
		AccountLateDeposit, AccountCommission, AccountPlatformTreasury:
		return true
	default:
		return false
	}
}

// LiabilityTypes returns every account type for which IsLiability holds, sorted.
func LiabilityTypes() []AccountType {
	var out []AccountType
	for _, set := range []map[AccountType]bool{singletonTypes, parameterizedTypes} {
		for t := range set {
			if t.IsLiability() {
				out = append(out, t)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AccountKey identifies an account, e.g. "ESCROW:deal-42" or "EXTERNAL_TON".
type AccountKey string

func (k AccountKey) String() string {
	return string(k)
}

// Type returns the account type encoded in the key prefix.
func (k AccountKey) Type() AccountType {
	prefix, _, _ := strings.Cut(string(k), accountKeySeparator)
	return AccountType(prefix)
}

// Param returns the parameter part of a parameterized key.
func (k AccountKey) Param() string {
	_, param, _ := strings.Cut(string(k), accountKeySeparator)
	return param
}

// Validate checks that the key has a known type and the right shape.
func (k AccountKey) Validate() error {
	prefix, param, hasParam := strings.Cut(string(k), accountKeySeparator)
	t := AccountType(prefix)

	switch {
	case singletonTypes[t]:
		if hasParam {
			return ErrInvalidAccountKey
		}
	case parameterizedTypes[t]:
		if !hasParam || strings.TrimSpace(param) == "" {
			return ErrInvalidAccountKey
		}
	default:
		return ErrInvalidAccountKey
	}

	return nil
}

// ParseAccountKey parses and validates a raw account key.
func ParseAccountKey(raw string) (AccountKey, error) {
	key := AccountKey(raw)
	if err := key.Validate(); err != nil {
		return "", err
	}
	return key, nil
}

func keyOf(t AccountType, param string) AccountKey {
	return AccountKey(string(t) + accountKeySeparator + param)
}

// Account key builders.
func TreasuryAccount() AccountKey                    { return AccountKey(AccountPlatformTreasury) }
func ExternalAccount() AccountKey                    { return AccountKey(AccountExternalTON) }
func NetworkFeesAccount() AccountKey                 { return AccountKey(AccountNetworkFees) }
func DustWriteOffAccount() AccountKey                { return AccountKey(AccountDustWriteOff) }
func EscrowAccount(dealID string) AccountKey         { return keyOf(AccountEscrow, dealID) }
func OwnerPendingAccount(userID string) AccountKey   { return keyOf(AccountOwnerPending, userID) }
func RefundPendingAccount(dealID string) AccountKey  { return keyOf(AccountRefundPending, dealID) }
func CommissionAccount(dealID string) AccountKey     { return keyOf(AccountCommission, dealID) }
func OverpaymentAccount(dealID string) AccountKey    { return keyOf(AccountOverpayment, dealID) }
func PartialDepositAccount(dealID string) AccountKey { return keyOf(AccountPartialDeposit, dealID) }
func LateDepositAccount(dealID string) AccountKey    { return keyOf(AccountLateDeposit, dealID) }

// Account represents a ledger account balance projection.
type Account struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Key       AccountKey
	Type      AccountType
	Balance   int64
	Version   int64
}

// NewAccount creates a zero-balance account for key.
func NewAccount(key AccountKey, now time.Time) *Account {
	return &Account{
		Key:       key,
		Type:      key.Type(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BalanceDrift is an account whose stored balance differs from the sum of
// its entries.
type BalanceDrift struct {
	Key        AccountKey
	Balance    int64
	EntryTotal int64
}

// Difference returns how far the stored balance is ahead of the entries.
func (d BalanceDrift) Difference() int64 {
	return d.Balance - d.EntryTotal
}
