package dto

import "time"

// WalletResponseDTO is returned for balance queries
type WalletResponseDTO struct {
	UserID  string `json:"user_id"`
	Balance int    `json:"balance"`
}

// WalletTransactionDTO is one ledger entry in API responses
type WalletTransactionDTO struct {
	ID        string            `json:"id"`
	Amount    int               `json:"amount"`
	Direction string            `json:"direction"`
	Reason    string            `json:"reason"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// WalletReconcileDTO reports the denormalized balance against the ledger sum
type WalletReconcileDTO struct {
	UserID     string `json:"user_id"`
	Balance    int    `json:"balance"`
	LedgerSum  int    `json:"ledger_sum"`
	Consistent bool   `json:"consistent"`
}
