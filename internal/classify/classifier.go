// Package classify decides whether a fetched transaction is an outgoing
// native transfer from a watched address matching the configured amount
// policy.
package classify

import (
	"errors"
	"strings"

	"solana-transfer-watch/internal/solana"
)

// ErrMalformedRecord is returned when a record lacks the transaction body
// or settlement metadata needed for classification.
var ErrMalformedRecord = errors.New("malformed transaction record")

// nonceLogMarker identifies an advance-nonce wrapper in the transaction
// log messages.
const nonceLogMarker = "AdvanceNonceAccount"

// TransferEvent is a matched outgoing native transfer. Produced once,
// consumed once, never persisted.
type TransferEvent struct {
	From      string
	To        string
	Lamports  uint64
	Signature string
}

// AmountSOL returns the transfer amount in SOL.
func (e TransferEvent) AmountSOL() float64 {
	return float64(e.Lamports) / solana.LamportsPerSOL
}

// Classifier evaluates fetched transactions against the watched set and
// an amount policy. Stateless per call.
type Classifier struct {
	watched *WatchedSet
	policy  AmountPolicy

	// nonceAware allows the transfer instruction to follow an
	// advance-nonce wrapper, recognized by its log marker. Without it
	// only a leading transfer instruction qualifies.
	nonceAware bool
}

// New creates a classifier.
func New(watched *WatchedSet, policy AmountPolicy, nonceAware bool) *Classifier {
	return &Classifier{
		watched:    watched,
		policy:     policy,
		nonceAware: nonceAware,
	}
}

// Policy returns the configured amount policy.
func (c *Classifier) Policy() AmountPolicy {
	return c.policy
}

// Classify evaluates one transaction record.
//
// Returns (event, nil) on a match, (nil, nil) when the record is valid
// but does not qualify, and (nil, error) when the record is malformed.
// The amount is the global balance delta at the fee-payer index, fee
// included; the window policy is expected to tolerate the fee.
func (c *Classifier) Classify(tx *solana.Transaction) (*TransferEvent, error) {
	if tx == nil || tx.Message == nil || tx.Meta == nil {
		return nil, ErrMalformedRecord
	}
	if len(tx.Meta.PreBalances) == 0 || len(tx.Meta.PostBalances) == 0 {
		return nil, ErrMalformedRecord
	}
	if len(tx.Message.AccountKeys) == 0 {
		return nil, ErrMalformedRecord
	}

	sender := tx.Message.AccountKeys[0]
	if !c.watched.Contains(sender) {
		return nil, nil
	}

	pre := tx.Meta.PreBalances[0]
	post := tx.Meta.PostBalances[0]
	if post >= pre {
		// Not an outgoing movement.
		return nil, nil
	}
	lamports := pre - post
	if !c.policy.Matches(lamports) {
		return nil, nil
	}

	// With an advance-nonce wrapper the transfer sits behind the nonce
	// instruction; otherwise only a leading transfer qualifies.
	anyPosition := c.nonceAware && hasNonceMarker(tx.Meta.LogMessages)

	for i, ix := range tx.Message.Instructions {
		if i > 0 && !anyPosition {
			break
		}
		if tx.Message.Program(ix) != solana.SystemProgramID {
			continue
		}
		if len(ix.Accounts) != 2 {
			continue
		}

		// Recipient comes from the instruction's own account list, not
		// from global index 1.
		toIdx := ix.Accounts[1]
		if toIdx < 0 || toIdx >= len(tx.Message.AccountKeys) {
			return nil, ErrMalformedRecord
		}

		return &TransferEvent{
			From:      sender,
			To:        tx.Message.AccountKeys[toIdx],
			Lamports:  lamports,
			Signature: tx.Signature,
		}, nil
	}

	return nil, nil
}

func hasNonceMarker(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, nonceLogMarker) {
			return true
		}
	}
	return false
}
