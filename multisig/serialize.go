package multisig

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Serialize returns the legacy wire encoding of tx, ready for broadcast.
func Serialize(tx *SignedTx) []byte {
	var buf bytes.Buffer
	buf.Grow(tx.msgTx.SerializeSizeStripped())
	// Writes to a bytes.Buffer only fail on a malformed tx, which assembly
	// cannot produce.
	if err := tx.msgTx.SerializeNoWitness(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// SerializeHex is Serialize encoded as hex, the form bitcoind RPC expects.
func SerializeHex(tx *SignedTx) string {
	return hex.EncodeToString(Serialize(tx))
}

// TxHash returns the transaction id.
func (tx *SignedTx) TxHash() chainhash.Hash {
	return tx.msgTx.TxHash()
}
