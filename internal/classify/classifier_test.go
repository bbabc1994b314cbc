package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-transfer-watch/internal/solana"
)

const (
	watchedAddr = "Watch1111111111111111111111111111111111111111"
	otherAddr   = "Other1111111111111111111111111111111111111111"
	destAddr    = "Dest11111111111111111111111111111111111111111"
)

// transferTx builds a record for an outgoing transfer of pre-post lamports
// from watchedAddr to destAddr via a leading system instruction.
func transferTx(pre, post uint64) *solana.Transaction {
	return &solana.Transaction{
		Signature: "sig1",
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{pre, 0, 1},
			PostBalances: []uint64{post, pre - post, 1},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{watchedAddr, destAddr, solana.SystemProgramID},
			Instructions: []solana.Instruction{
				{ProgramIDIndex: 2, Accounts: []int{0, 1}},
			},
		},
	}
}

func targetsPolicy() TargetsPolicy {
	// 2 SOL ± 0.002 SOL.
	return TargetsPolicy{Targets: []uint64{2_000_000_000}, Tolerance: 2_000_000}
}

func TestClassify_TargetsPolicyAccepts(t *testing.T) {
	c := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), false)

	// 2.002 SOL before, 0.002 SOL after: 2 SOL moved, fee included.
	ev, err := c.Classify(transferTx(2_002_000_000, 2_000_000))
	require.NoError(t, err)
	require.NotNil(t, ev)

	assert.Equal(t, watchedAddr, ev.From)
	assert.Equal(t, destAddr, ev.To)
	assert.Equal(t, uint64(2_000_000_000), ev.Lamports)
	assert.Equal(t, "sig1", ev.Signature)
	assert.InDelta(t, 2.0, ev.AmountSOL(), 1e-9)
}

func TestClassify_IntervalPolicyAccepts(t *testing.T) {
	// [0.001 SOL, 1000 SOL].
	policy := IntervalPolicy{Low: 1_000_000, High: 1_000_000_000_000}
	c := New(NewWatchedSet([]string{watchedAddr}), policy, false)

	ev, err := c.Classify(transferTx(2_002_000_000, 2_000_000))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, uint64(2_000_000_000), ev.Lamports)
}

func TestClassify_UnwatchedSenderAlwaysRejected(t *testing.T) {
	c := New(NewWatchedSet([]string{otherAddr}), targetsPolicy(), false)

	ev, err := c.Classify(transferTx(2_002_000_000, 2_000_000))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClassify_AmountOutsideWindowSkipped(t *testing.T) {
	c := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), false)

	// 0.5 SOL moved, far from the 2 SOL target.
	ev, err := c.Classify(transferTx(1_000_000_000, 500_000_000))
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClassify_IncomingBalanceSkipped(t *testing.T) {
	c := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), false)

	tx := transferTx(2_002_000_000, 2_000_000)
	tx.Meta.PreBalances[0] = 1_000_000
	tx.Meta.PostBalances[0] = 2_000_000_000

	ev, err := c.Classify(tx)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClassify_MalformedRecords(t *testing.T) {
	c := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), false)

	cases := map[string]*solana.Transaction{
		"nil record":   nil,
		"no message":   {Meta: &solana.TransactionMeta{PreBalances: []uint64{1}, PostBalances: []uint64{1}}},
		"no meta":      {Message: &solana.TransactionMessage{AccountKeys: []string{watchedAddr}}},
		"no balances":  {Meta: &solana.TransactionMeta{}, Message: &solana.TransactionMessage{AccountKeys: []string{watchedAddr}}},
		"no accounts":  {Meta: &solana.TransactionMeta{PreBalances: []uint64{1}, PostBalances: []uint64{0}}, Message: &solana.TransactionMessage{}},
	}

	for name, tx := range cases {
		ev, err := c.Classify(tx)
		assert.ErrorIs(t, err, ErrMalformedRecord, name)
		assert.Nil(t, ev, name)
	}
}

func TestClassify_RecipientFromInstructionLocalIndex(t *testing.T) {
	c := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), false)

	// Destination is global index 3, not 1: the instruction's own account
	// list decides.
	tx := &solana.Transaction{
		Signature: "sig2",
		Meta: &solana.TransactionMeta{
			PreBalances:  []uint64{2_002_000_000, 0, 0, 0},
			PostBalances: []uint64{2_000_000, 0, 0, 2_000_000_000},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{watchedAddr, otherAddr, solana.SystemProgramID, destAddr},
			Instructions: []solana.Instruction{
				{ProgramIDIndex: 2, Accounts: []int{0, 3}},
			},
		},
	}

	ev, err := c.Classify(tx)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, destAddr, ev.To)
}

func TestClassify_NoQualifyingInstruction(t *testing.T) {
	c := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), false)

	tx := transferTx(2_002_000_000, 2_000_000)
	// Three account references: not a plain transfer shape.
	tx.Message.Instructions = []solana.Instruction{
		{ProgramIDIndex: 2, Accounts: []int{0, 1, 2}},
	}

	ev, err := c.Classify(tx)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func nonceWrappedTx() *solana.Transaction {
	tx := transferTx(2_002_000_000, 2_000_000)
	tx.Meta.LogMessages = []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		"Program log: Instruction: AdvanceNonceAccount",
		"Program 11111111111111111111111111111111 success",
	}
	// Nonce wrapper first (three accounts), transfer second.
	tx.Message.Instructions = []solana.Instruction{
		{ProgramIDIndex: 2, Accounts: []int{1, 2, 0}},
		{ProgramIDIndex: 2, Accounts: []int{0, 1}},
	}
	return tx
}

func TestClassify_NonceWrapperRequiresNonceAware(t *testing.T) {
	watched := NewWatchedSet([]string{watchedAddr})

	ev, err := New(watched, targetsPolicy(), false).Classify(nonceWrappedTx())
	require.NoError(t, err)
	assert.Nil(t, ev, "nonce-unaware classifier must not look past the first instruction")

	ev, err = New(watched, targetsPolicy(), true).Classify(nonceWrappedTx())
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, destAddr, ev.To)
	assert.Equal(t, uint64(2_000_000_000), ev.Lamports)
}

func TestClassify_NonceAwareNeedsLogMarker(t *testing.T) {
	tx := nonceWrappedTx()
	tx.Meta.LogMessages = nil

	ev, err := New(NewWatchedSet([]string{watchedAddr}), targetsPolicy(), true).Classify(tx)
	require.NoError(t, err)
	assert.Nil(t, ev)
}
