package multisig

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
)

// RedeemScript is the multisig script every signature commits to.
type RedeemScript []byte

func (rs RedeemScript) String() string {
	return hex.EncodeToString(rs)
}

// walletKeys is the key count of the wallet's redeem script.
const walletKeys = 2

// walletRequiredSigs is the number of signatures needed to spend.
const walletRequiredSigs = 1

// BuildRedeemScript encodes OP_1 <key0> <key1> OP_2 OP_CHECKMULTISIG. keys must
// already be in KeyOrdering order.
func BuildRedeemScript(keys []PublicKey) (RedeemScript, error) {
	if len(keys) != walletKeys {
		return nil, newError(ErrInvalidKeyCount,
			fmt.Sprintf("redeem script needs %d keys, got %d", walletKeys, len(keys)), nil)
	}
	return multiSigScript(walletRequiredSigs, keys)
}

// RedeemScriptFor sorts a and b and builds their redeem script. The result
// does not depend on argument order.
func RedeemScriptFor(a, b PublicKey) (RedeemScript, error) {
	first, second := SortPublicKeys(a, b)
	return BuildRedeemScript([]PublicKey{first, second})
}

func multiSigScript(required int, keys []PublicKey) (RedeemScript, error) {
	if required < 1 || required > len(keys) || len(keys) > txscript.MaxPubKeysPerMultiSig {
		return nil, newError(ErrInvalidKeyCount,
			fmt.Sprintf("cannot build %d-of-%d multisig", required, len(keys)), nil)
	}
	b := txscript.NewScriptBuilder().AddInt64(int64(required))
	for i := range keys {
		b.AddData(keys[i][:])
	}
	b.AddInt64(int64(len(keys))).AddOp(txscript.OP_CHECKMULTISIG)
	script, err := b.Script()
	if err != nil {
		return nil, newError(ErrScriptBuild, "cannot build redeem script", err)
	}
	return script, nil
}

// scriptPubKeys returns the public keys pushed by a multisig redeem script in
// script order.
func scriptPubKeys(script RedeemScript) ([]*btcec.PublicKey, error) {
	ok, err := txscript.IsMultisigScript(script)
	if err != nil || !ok {
		return nil, newError(ErrInvalidRedeemScript, "script is not a multisig script", err)
	}
	var keys []*btcec.PublicKey
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		data := tokenizer.Data()
		if len(data) != btcec.PubKeyBytesLenCompressed {
			continue
		}
		pk, err := btcec.ParsePubKey(data)
		if err != nil {
			return nil, newError(ErrInvalidRedeemScript, "redeem script holds an invalid key", err)
		}
		keys = append(keys, pk)
	}
	if err := tokenizer.Err(); err != nil {
		return nil, newError(ErrInvalidRedeemScript, "cannot parse redeem script", err)
	}
	if len(keys) == 0 {
		return nil, newError(ErrInvalidRedeemScript, "redeem script has no compressed keys", nil)
	}
	return keys, nil
}
