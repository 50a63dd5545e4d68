package multisig

import (
	"github.com/btcsuite/btcd/btcutil"
)

// Wallet is a 1-of-2 multisig wallet: the card key and, once configured, its
// peer key.
type Wallet struct {
	net     *Network
	address WalletAddress
}

// NewWallet derives the wallet address for a and b on net. A nil b yields a
// SingleKeyFallback wallet that can report its key but cannot spend.
func NewWallet(a PublicKey, b *PublicKey, net *Network) (*Wallet, error) {
	addr, err := DeriveAddress(a, b, net)
	if err != nil {
		return nil, err
	}
	return &Wallet{net: net, address: addr}, nil
}

func (w *Wallet) Network() *Network      { return w.net }
func (w *Wallet) Address() WalletAddress { return w.address }

// RedeemScript returns a copy of the wallet's redeem script.
func (w *Wallet) RedeemScript() RedeemScript {
	return append(RedeemScript(nil), w.address.RedeemScript...)
}

// CanSpend fails with ErrNoMultisigPeer for a SingleKeyFallback wallet.
func (w *Wallet) CanSpend() error {
	if w.address.Kind != P2SHMultisig {
		return newError(ErrNoMultisigPeer, "wallet has no multisig peer key", nil)
	}
	return nil
}

// BuildUnsignedTransaction spends utxos to destination with change back to
// the wallet's own address.
func (w *Wallet) BuildUnsignedTransaction(utxos []UTXO, amount, fee btcutil.Amount,
	mode FeeMode, destination string) (*UnsignedTx, error) {

	if err := w.CanSpend(); err != nil {
		return nil, err
	}
	return BuildUnsignedTransaction(utxos, amount, fee, mode, destination, w.address.Value, w.net)
}

// DigestsToSign returns the digests of tx under the wallet's redeem script.
func (w *Wallet) DigestsToSign(tx *UnsignedTx) ([]SighashDigest, error) {
	if err := w.CanSpend(); err != nil {
		return nil, err
	}
	return SigningPayload(SignHash, tx, w.address.RedeemScript)
}

// AssembleSignedTransaction seals tx with the signer's blob.
func (w *Wallet) AssembleSignedTransaction(tx *UnsignedTx, blob []byte) (*SignedTx, error) {
	if err := w.CanSpend(); err != nil {
		return nil, err
	}
	return AssembleSignedTransaction(tx, w.address.RedeemScript, blob)
}

// PkScript returns the wallet's P2SH locking script.
func (w *Wallet) PkScript() ([]byte, error) {
	if err := w.CanSpend(); err != nil {
		return nil, err
	}
	return P2SHPkScript(w.address.RedeemScript, w.net)
}
