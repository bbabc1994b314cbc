package classify

import (
	"fmt"
	"strings"

	"solana-transfer-watch/internal/solana"
)

// AmountPolicy decides whether an outgoing lamport amount is a match.
// Two shapes exist as explicit configuration: a closed interval and a
// discrete target set with an absolute tolerance.
type AmountPolicy interface {
	Matches(lamports uint64) bool
	String() string
}

// IntervalPolicy matches any amount inside the closed interval
// [Low, High], in lamports.
type IntervalPolicy struct {
	Low  uint64
	High uint64
}

// Matches reports whether lamports falls inside the interval.
func (p IntervalPolicy) Matches(lamports uint64) bool {
	return lamports >= p.Low && lamports <= p.High
}

func (p IntervalPolicy) String() string {
	return fmt.Sprintf("interval [%s, %s] SOL", formatSOL(p.Low), formatSOL(p.High))
}

// TargetsPolicy matches any amount within Tolerance lamports of one of
// the Targets.
type TargetsPolicy struct {
	Targets   []uint64
	Tolerance uint64
}

// Matches reports whether lamports is within tolerance of any target.
func (p TargetsPolicy) Matches(lamports uint64) bool {
	for _, t := range p.Targets {
		var diff uint64
		if lamports > t {
			diff = lamports - t
		} else {
			diff = t - lamports
		}
		if diff <= p.Tolerance {
			return true
		}
	}
	return false
}

func (p TargetsPolicy) String() string {
	parts := make([]string, len(p.Targets))
	for i, t := range p.Targets {
		parts[i] = formatSOL(t)
	}
	return fmt.Sprintf("targets {%s} ±%s SOL", strings.Join(parts, ", "), formatSOL(p.Tolerance))
}

func formatSOL(lamports uint64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.9f", float64(lamports)/solana.LamportsPerSOL), "0"), ".")
}
