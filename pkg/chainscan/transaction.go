package chainscan

import "math/big"

// Transaction is one transaction as returned by a BlockProvider. It is
// either an *AccountTx or a *ScriptTx.
type Transaction interface {
	// BlockHeight is the height of the block containing the transaction.
	BlockHeight() int64

	isTransaction()
}

// AccountTx is a transaction from an account-based chain, where the
// signature components are carried directly.
type AccountTx struct {
	Hash   string // transaction hash, hex
	R, S   *big.Int
	Height int64
	From   string

	// SigHash is the digest the sender actually signed. When empty the
	// reduced transaction hash stands in for it.
	SigHash []byte

	// PublicKey of the sender, if the provider could recover it.
	PublicKey []byte
}

// ScriptInput is one input of a script-based transaction.
type ScriptInput struct {
	SignatureScript []byte
	Witness         [][]byte

	// SigHash is the digest signed by this input, if the provider
	// computed it.
	SigHash []byte

	PubKey  []byte
	Address string
}

// ScriptTx is a transaction from a script-based chain whose signatures
// are DER blobs inside the unlocking scripts or witness stacks.
type ScriptTx struct {
	TxID   string
	Height int64
	Inputs []ScriptInput
}

// BlockHeight implements Transaction.
func (tx *AccountTx) BlockHeight() int64 { return tx.Height }

// BlockHeight implements Transaction.
func (tx *ScriptTx) BlockHeight() int64 { return tx.Height }

func (*AccountTx) isTransaction() {}
func (*ScriptTx) isTransaction()  {}
