package chain

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"p2sh_multisig/multisig"
)

// Unspent is one entry of a listunspent result.
type Unspent struct {
	TxID          string  `json:"txid"`
	Vout          uint32  `json:"vout"`
	Address       string  `json:"address"`
	ScriptPubKey  string  `json:"scriptPubKey"`
	RedeemScript  string  `json:"redeemScript,omitempty"`
	Amount        float64 `json:"amount"` // Value in BTC
	Confirmations int64   `json:"confirmations"`
	Spendable     bool    `json:"spendable"`
	Safe          bool    `json:"safe"`
}

// UTXO converts u for the engine. The BTC float is converted to satoshi once
// here, with rounding; everything downstream is integer.
func (u Unspent) UTXO() (multisig.UTXO, error) {
	var utxo multisig.UTXO
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return utxo, fmt.Errorf("txid %q: %w", u.TxID, err)
	}
	pkScript, err := hex.DecodeString(u.ScriptPubKey)
	if err != nil {
		return utxo, fmt.Errorf("scriptPubKey of %s:%d: %w", u.TxID, u.Vout, err)
	}
	value, err := btcutil.NewAmount(u.Amount)
	if err != nil {
		return utxo, fmt.Errorf("amount of %s:%d: %w", u.TxID, u.Vout, err)
	}
	utxo.Hash = *hash
	utxo.Index = u.Vout
	utxo.PkScript = pkScript
	utxo.Value = value
	return utxo, nil
}

// Tx is the decoderawtransaction view of a transaction.
type Tx struct {
	TxID     string `json:"txid"`
	Hash     string `json:"hash"`
	Version  int    `json:"version"`
	Size     int    `json:"size"`
	LockTime uint32 `json:"locktime"`
	Vin      []Vin  `json:"vin"`
	Vout     []Vout `json:"vout"`
}

type Vin struct {
	TxID      string    `json:"txid,omitempty"`      // Previous transaction ID
	Vout      uint32    `json:"vout"`                // Output index from previous tx
	ScriptSig ScriptSig `json:"scriptSig,omitempty"` // Unlocking script
	Sequence  uint32    `json:"sequence"`
	Coinbase  string    `json:"coinbase,omitempty"`
}

type ScriptSig struct {
	Asm string `json:"asm"`
	Hex string `json:"hex"`
}

type Vout struct {
	Value        float64      `json:"value"`
	N            int          `json:"n"`
	ScriptPubKey ScriptPubKey `json:"scriptPubKey"`
}

type ScriptPubKey struct {
	Asm     string `json:"asm"`
	Hex     string `json:"hex"`
	Type    string `json:"type,omitempty"` // e.g. "scripthash"
	Address string `json:"address,omitempty"`
}

// OutputTotal sums the outputs in satoshi.
func (tx *Tx) OutputTotal() (btcutil.Amount, error) {
	var total btcutil.Amount
	for _, out := range tx.Vout {
		v, err := btcutil.NewAmount(out.Value)
		if err != nil {
			return 0, fmt.Errorf("output %d of %s: %w", out.N, tx.TxID, err)
		}
		total += v
	}
	return total, nil
}
