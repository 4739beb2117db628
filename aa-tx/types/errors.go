package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrGasEstimation        = errors.New("gas estimation failed")
	ErrSigning              = errors.New("signing failed")
	ErrAlreadySigned        = errors.New("transaction already signed")
	ErrMalformedTransaction = errors.New("malformed transaction")
	ErrRPC                  = errors.New("rpc error")
	ErrChainClientTimeout   = fmt.Errorf("%w: chain client timeout", ErrRPC)
	ErrRejectedByNetwork    = errors.New("rejected by network")
	ErrTransactionFailed    = errors.New("transaction failed")
	ErrDeployment           = errors.New("deployment failed")
	ErrBroadcastUnknown     = errors.New("broadcast outcome unknown")
)

// RejectedError is the terminal state of a transaction the network refused.
// Reason is the network's message, unmodified.
type RejectedError struct {
	Reason string
	// Malformed is set when the network could not parse the submitted bytes.
	Malformed bool
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected by network: %s", e.Reason)
}

func (e *RejectedError) Unwrap() []error {
	if e.Malformed {
		return []error{ErrRejectedByNetwork, ErrMalformedTransaction}
	}
	return []error{ErrRejectedByNetwork}
}

// DeploymentError reports the first failing stage of a deployment.
type DeploymentError struct {
	Stage string
	Err   error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deployment failed at %s: %v", e.Stage, e.Err)
}

func (e *DeploymentError) Unwrap() []error {
	return []error{ErrDeployment, e.Err}
}

// BroadcastUnknownError reports a broadcast that failed without a verdict from
// the network, e.g. on a timeout. The node may have accepted the transaction,
// so its nonce stays taken; resolve the outcome by looking up Hash or the
// account nonce.
type BroadcastUnknownError struct {
	Hash  common.Hash
	From  common.Address
	Nonce uint64
	Err   error
}

func (e *BroadcastUnknownError) Error() string {
	return fmt.Sprintf("broadcast of %s (from %s, nonce %d) has unknown outcome: %v", e.Hash, e.From, e.Nonce, e.Err)
}

func (e *BroadcastUnknownError) Unwrap() []error {
	return []error{ErrBroadcastUnknown, e.Err}
}
