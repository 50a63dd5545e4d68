package multisig

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// SighashDigest is the legacy SIGHASH_ALL digest of one input.
type SighashDigest [chainhash.HashSize]byte

func (d SighashDigest) String() string {
	return hex.EncodeToString(d[:])
}

// SigningMethod enumerates what a signer may be asked to do with a
// transaction. Only SignHash is supported by this wallet type.
type SigningMethod int

const (
	// SignHash hands the signer one 32-byte digest per input.
	SignHash SigningMethod = iota

	// SignRaw hands the signer the unhashed serialized transaction.
	SignRaw

	// SignHashIssuerValidated signs digests and then has the card issuer
	// co-sign a validation of the result.
	SignHashIssuerValidated
)

func (m SigningMethod) String() string {
	switch m {
	case SignHash:
		return "sign-hash"
	case SignRaw:
		return "sign-raw"
	case SignHashIssuerValidated:
		return "sign-hash-issuer-validated"
	}
	return fmt.Sprintf("SigningMethod(%d)", int(m))
}

// SupportedSigningMethods lists the methods SigningPayload accepts.
var SupportedSigningMethods = []SigningMethod{SignHash}

// SigningPayload returns what the signer has to sign for method. Unsupported
// methods are permanent failures.
func SigningPayload(method SigningMethod, tx *UnsignedTx, script RedeemScript) ([]SighashDigest, error) {
	switch method {
	case SignHash:
		return DigestsToSign(tx, script)
	case SignRaw:
		return nil, newError(ErrRawSigningNotSupported,
			"multisig wallet cannot sign a raw transaction", nil)
	case SignHashIssuerValidated:
		return nil, newError(ErrIssuerValidationNotSupported,
			"multisig wallet has no issuer validation step", nil)
	}
	return nil, newError(ErrUnsupportedSigningMethod,
		fmt.Sprintf("signing method %s is not supported", method), nil)
}

// DigestsToSign computes one SIGHASH_ALL digest per input, in input order,
// using script as the scriptCode of the input being signed.
func DigestsToSign(tx *UnsignedTx, script RedeemScript) ([]SighashDigest, error) {
	if len(script) == 0 {
		return nil, newError(ErrInvalidRedeemScript, "empty redeem script", nil)
	}
	digests := make([]SighashDigest, len(tx.msgTx.TxIn))
	for i := range tx.msgTx.TxIn {
		d, err := inputDigest(tx, script, i)
		if err != nil {
			return nil, err
		}
		digests[i] = d
	}
	return digests, nil
}

func inputDigest(tx *UnsignedTx, script RedeemScript, idx int) (SighashDigest, error) {
	var d SighashDigest
	hash, err := txscript.CalcSignatureHash(script, txscript.SigHashAll, tx.msgTx, idx)
	if err != nil {
		return d, newError(ErrSighash, fmt.Sprintf("cannot compute digest of input %d", idx), err)
	}
	copy(d[:], hash)
	return d, nil
}
