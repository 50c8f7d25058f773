package enums

import "fmt"

// WalletTransactionType classifies a signed wallet ledger entry.
type WalletTransactionType string

const (
	WalletTransactionTypeProfit     WalletTransactionType = "profit"
	WalletTransactionTypeCommission WalletTransactionType = "commission"
	WalletTransactionTypeAdjustment WalletTransactionType = "adjustment"
	WalletTransactionTypeTopUp      WalletTransactionType = "top_up"
	WalletTransactionTypeWithdrawal WalletTransactionType = "withdrawal"
	WalletTransactionTypeOrderDebit WalletTransactionType = "order_debit"
	WalletTransactionTypeReversal   WalletTransactionType = "reversal"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeProfit,
	WalletTransactionTypeCommission,
	WalletTransactionTypeAdjustment,
	WalletTransactionTypeTopUp,
	WalletTransactionTypeWithdrawal,
	WalletTransactionTypeOrderDebit,
	WalletTransactionTypeReversal,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}
