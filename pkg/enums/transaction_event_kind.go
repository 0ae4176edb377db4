package enums

import "fmt"

// TransactionEventKind distinguishes created and deleted material transactions.
type TransactionEventKind string

const (
	TransactionEventCreated TransactionEventKind = "created"
	TransactionEventDeleted TransactionEventKind = "deleted"
)

func (k TransactionEventKind) IsValid() bool {
	return k == TransactionEventCreated || k == TransactionEventDeleted
}

// ParseTransactionEventKind converts raw input into TransactionEventKind.
func ParseTransactionEventKind(value string) (TransactionEventKind, error) {
	kind := TransactionEventKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid transaction event kind %q", value)
	}
	return kind, nil
}
