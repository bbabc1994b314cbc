package solana

import "context"

// SystemProgramID is the program that executes native SOL transfers.
const SystemProgramID = "11111111111111111111111111111111"

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// RPCClient defines the Solana RPC HTTP interface consumed by the watcher.
type RPCClient interface {
	// GetTransaction retrieves a confirmed transaction by signature.
	// Returns (nil, nil) when the transaction is not known to the node.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}

// Transaction represents a fetched Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains settlement metadata.
type TransactionMeta struct {
	Err          interface{}
	LogMessages  []string
	PreBalances  []uint64
	PostBalances []uint64
}

// TransactionMessage contains the parsed transaction message.
// AccountKeys[0] is the fee payer. Instruction account references index
// into AccountKeys.
type TransactionMessage struct {
	AccountKeys  []string
	Instructions []Instruction
}

// Instruction is a single compiled instruction.
type Instruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// Program resolves the instruction's program address against the message
// account keys. Returns "" if the index is out of range.
func (m *TransactionMessage) Program(ix Instruction) string {
	if ix.ProgramIDIndex < 0 || ix.ProgramIDIndex >= len(m.AccountKeys) {
		return ""
	}
	return m.AccountKeys[ix.ProgramIDIndex]
}
