package registryclient

import (
	"errors"
	"fmt"

	"github.com/cipherstake/staking-ledger/internal/fhe"
)

const (
	ReasonDelegationMissing   = "delegation_missing"
	ReasonInsufficientBalance = "insufficient_balance"
)

// TransferError is a semantic rejection of a confidential transfer by the
// registry. Rejections are final and never retried.
type TransferError struct {
	Reason string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("registry rejected transfer: %s", e.Reason)
}

func IsTransferError(err error) bool {
	transferErr := new(TransferError)
	return errors.As(err, &transferErr)
}

type mintRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type mintResponse struct {
	Cipher fhe.Handle `json:"cipher"`
}

type transferFromRequest struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Cipher fhe.Handle `json:"cipher"`
}

type transferRequest struct {
	To     string     `json:"to"`
	Cipher fhe.Handle `json:"cipher"`
}

type setOperatorRequest struct {
	Owner    string `json:"owner"`
	Operator string `json:"operator"`
	Until    int64  `json:"until"`
}

type operatorResponse struct {
	Active bool  `json:"active"`
	Until  int64 `json:"until"`
}

type balanceResponse struct {
	Cipher fhe.Handle `json:"cipher"`
}
