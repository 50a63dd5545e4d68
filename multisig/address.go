package multisig

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// AddressKind tells a real P2SH address apart from the single key fallback.
type AddressKind int

const (
	// P2SHMultisig is a Base58Check P2SH address of the 1-of-2 redeem script.
	P2SHMultisig AddressKind = iota

	// SingleKeyFallback is the hex encoding of the only configured public
	// key. It is not an address: it marks a wallet whose multisig peer key
	// is not configured yet.
	SingleKeyFallback
)

func (k AddressKind) String() string {
	switch k {
	case P2SHMultisig:
		return "p2sh-multisig"
	case SingleKeyFallback:
		return "single-key-fallback"
	}
	return "unknown"
}

// WalletAddress is the result of DeriveAddress.
type WalletAddress struct {
	Kind  AddressKind
	Value string

	// RedeemScript is nil for SingleKeyFallback.
	RedeemScript RedeemScript
}

func (a WalletAddress) String() string {
	return a.Value
}

// DeriveAddress derives the wallet address of a and b on net. When b is nil
// there is no multisig peer and the hex of a is returned as a
// SingleKeyFallback.
func DeriveAddress(a PublicKey, b *PublicKey, net *Network) (WalletAddress, error) {
	if err := checkNetwork(net); err != nil {
		return WalletAddress{}, err
	}
	if b == nil {
		return WalletAddress{Kind: SingleKeyFallback, Value: hex.EncodeToString(a[:])}, nil
	}
	script, err := RedeemScriptFor(a, *b)
	if err != nil {
		return WalletAddress{}, err
	}
	addr, err := scriptAddress(script, net)
	if err != nil {
		return WalletAddress{}, err
	}
	return WalletAddress{Kind: P2SHMultisig, Value: addr.EncodeAddress(), RedeemScript: script}, nil
}

// ScriptAddress encodes HASH160(script) as a P2SH address for net.
func ScriptAddress(script RedeemScript, net *Network) (string, error) {
	if err := checkNetwork(net); err != nil {
		return "", err
	}
	addr, err := scriptAddress(script, net)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

func scriptAddress(script RedeemScript, net *Network) (*btcutil.AddressScriptHash, error) {
	addr, err := btcutil.NewAddressScriptHash(script, net.Params)
	if err != nil {
		return nil, newError(ErrInvalidRedeemScript, "cannot hash redeem script", err)
	}
	return addr, nil
}

// P2SHPkScript returns the locking script OP_HASH160 <hash> OP_EQUAL for a
// redeem script.
func P2SHPkScript(script RedeemScript, net *Network) ([]byte, error) {
	if err := checkNetwork(net); err != nil {
		return nil, err
	}
	addr, err := scriptAddress(script, net)
	if err != nil {
		return nil, err
	}
	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, newError(ErrScriptBuild, "cannot build P2SH locking script", err)
	}
	return pkScript, nil
}
