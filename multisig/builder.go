package multisig

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	mapset "github.com/deckarep/golang-set/v2"
)

// txVersion is the version of every transaction the engine builds.
const txVersion = 1

// FeeMode selects which output pays the fee.
type FeeMode int

const (
	// FeeIncludedInAmount takes the fee out of the payment output.
	FeeIncludedInAmount FeeMode = iota

	// FeeAddedToChange takes the fee out of the change output.
	FeeAddedToChange
)

func (m FeeMode) String() string {
	switch m {
	case FeeIncludedInAmount:
		return "included"
	case FeeAddedToChange:
		return "change"
	}
	return fmt.Sprintf("FeeMode(%d)", int(m))
}

// ParseFeeMode maps the configuration names of a FeeMode.
func ParseFeeMode(s string) (FeeMode, error) {
	switch s {
	case "included", "included-in-amount":
		return FeeIncludedInAmount, nil
	case "change", "added-to-change":
		return FeeAddedToChange, nil
	}
	return 0, newError(ErrInvalidAmount, fmt.Sprintf("unknown fee mode %q", s), nil)
}

// UTXO is a spendable previous output owned by the wallet.
type UTXO struct {
	Hash     chainhash.Hash
	Index    uint32
	PkScript []byte
	Value    btcutil.Amount
}

func (u UTXO) OutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: u.Hash, Index: u.Index}
}

func (u UTXO) String() string {
	return fmt.Sprintf("%s:%d(%s)", u.Hash, u.Index, u.Value)
}

// UnsignedTx is a transaction whose inputs all have empty scriptSigs.
type UnsignedTx struct {
	msgTx   *wire.MsgTx
	utxos   []UTXO
	payment btcutil.Amount
	change  btcutil.Amount
	fee     btcutil.Amount
}

// MsgTx returns a deep copy of the wire transaction.
func (tx *UnsignedTx) MsgTx() *wire.MsgTx {
	return tx.msgTx.Copy()
}

// UTXOs returns the spent outputs in input order.
func (tx *UnsignedTx) UTXOs() []UTXO {
	utxos := make([]UTXO, len(tx.utxos))
	copy(utxos, tx.utxos)
	return utxos
}

func (tx *UnsignedTx) InputCount() int             { return len(tx.msgTx.TxIn) }
func (tx *UnsignedTx) OutputCount() int            { return len(tx.msgTx.TxOut) }
func (tx *UnsignedTx) Payment() btcutil.Amount     { return tx.payment }
func (tx *UnsignedTx) Change() btcutil.Amount      { return tx.change }
func (tx *UnsignedTx) Fee() btcutil.Amount         { return tx.fee }
func (tx *UnsignedTx) HasChange() bool             { return tx.change != 0 }
func (tx *UnsignedTx) InputTotal() btcutil.Amount  { return sumUTXOs(tx.utxos) }
func (tx *UnsignedTx) OutputTotal() btcutil.Amount { return tx.payment + tx.change }

func sumUTXOs(utxos []UTXO) btcutil.Amount {
	var total btcutil.Amount
	for _, u := range utxos {
		total += u.Value
	}
	return total
}

// BuildUnsignedTransaction spends every UTXO into one payment output to
// destination and, when the remainder is not zero, one change output to
// changeAddress.
//
// With FeeIncludedInAmount the payment is amount-fee and the change is
// total-amount. With FeeAddedToChange the payment is amount and the change is
// total-amount-fee. Either way total == payment + change + fee.
func BuildUnsignedTransaction(utxos []UTXO, amount, fee btcutil.Amount, mode FeeMode,
	destination, changeAddress string, net *Network) (*UnsignedTx, error) {

	if err := checkNetwork(net); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, newError(ErrInvalidAmount, fmt.Sprintf("amount %d must be positive", amount), nil)
	}
	if fee < 0 {
		return nil, newError(ErrInvalidAmount, fmt.Sprintf("fee %d must not be negative", fee), nil)
	}
	if amount > btcutil.MaxSatoshi || fee > btcutil.MaxSatoshi {
		return nil, newError(ErrValueOverflow, "amount or fee exceeds the money supply", nil)
	}

	total, err := checkUTXOs(utxos)
	if err != nil {
		return nil, err
	}

	destScript, err := payToAddress(destination, net, ErrDestinationAddressInvalid)
	if err != nil {
		return nil, err
	}

	var payment, change btcutil.Amount
	switch mode {
	case FeeIncludedInAmount:
		if fee >= amount {
			return nil, newError(ErrInvalidAmount,
				fmt.Sprintf("fee %d leaves nothing of amount %d", fee, amount), nil)
		}
		if total < amount {
			return nil, insufficient(amount, total)
		}
		payment = amount - fee
		change = total - amount
	case FeeAddedToChange:
		if total < amount+fee {
			return nil, insufficient(amount+fee, total)
		}
		payment = amount
		change = total - amount - fee
	default:
		return nil, newError(ErrInvalidAmount, fmt.Sprintf("unknown fee mode %d", mode), nil)
	}

	msgTx := wire.NewMsgTx(txVersion)
	for i := range utxos {
		outPoint := utxos[i].OutPoint()
		msgTx.AddTxIn(wire.NewTxIn(&outPoint, nil, nil))
	}
	msgTx.AddTxOut(wire.NewTxOut(int64(payment), destScript))
	if change != 0 {
		changeScript, err := payToAddress(changeAddress, net, ErrChangeAddressInvalid)
		if err != nil {
			return nil, err
		}
		msgTx.AddTxOut(wire.NewTxOut(int64(change), changeScript))
	}

	tx := &UnsignedTx{
		msgTx:   msgTx,
		utxos:   make([]UTXO, len(utxos)),
		payment: payment,
		change:  change,
		fee:     fee,
	}
	for i, u := range utxos {
		u.PkScript = append([]byte(nil), u.PkScript...)
		tx.utxos[i] = u
	}
	return tx, nil
}

func insufficient(need, have btcutil.Amount) error {
	return newError(ErrInsufficientBalance,
		fmt.Sprintf("need %d satoshi, wallet holds %d", int64(need), int64(have)), nil)
}

// checkUTXOs validates the set and sums it without overflowing.
func checkUTXOs(utxos []UTXO) (btcutil.Amount, error) {
	if len(utxos) == 0 {
		return 0, newError(ErrInsufficientBalance, "wallet has no unspent outputs", nil)
	}
	seen := mapset.NewThreadUnsafeSetWithSize[wire.OutPoint](len(utxos))
	var total btcutil.Amount
	for _, u := range utxos {
		if !seen.Add(u.OutPoint()) {
			return 0, newError(ErrDuplicateInput, fmt.Sprintf("outpoint %s:%d listed twice", u.Hash, u.Index), nil)
		}
		if u.Value < 0 {
			return 0, newError(ErrInvalidAmount, fmt.Sprintf("utxo %s has a negative value", u), nil)
		}
		if u.Value > btcutil.MaxSatoshi-total {
			return 0, newError(ErrValueOverflow, "utxo values exceed the money supply", nil)
		}
		total += u.Value
	}
	return total, nil
}

func payToAddress(address string, net *Network, code ErrorCode) ([]byte, error) {
	addr, err := btcutil.DecodeAddress(address, net.Params)
	if err != nil {
		return nil, newError(code, fmt.Sprintf("cannot decode %q", address), err)
	}
	if !addr.IsForNet(net.Params) {
		return nil, newError(code, fmt.Sprintf("%q is not a %s address", address, net), nil)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, newError(code, fmt.Sprintf("cannot pay to %q", address), err)
	}
	return script, nil
}
