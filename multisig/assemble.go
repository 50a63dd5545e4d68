package multisig

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// RawSignatureSize is the length of one r||s signature in a signer blob.
const RawSignatureSize = 64

// RawSignature is r||s, each a 32-byte big-endian integer.
type RawSignature [RawSignatureSize]byte

// R returns the first half of the signature.
func (sig RawSignature) R() [32]byte {
	var r [32]byte
	copy(r[:], sig[:32])
	return r
}

// S returns the second half of the signature.
func (sig RawSignature) S() [32]byte {
	var s [32]byte
	copy(s[:], sig[32:])
	return s
}

// Canonicalize returns sig with s replaced by n-s when s > n/2. A signature
// that is already low-S comes back unchanged.
func Canonicalize(sig RawSignature) (RawSignature, error) {
	r, s, err := parseScalars(sig)
	if err != nil {
		return RawSignature{}, err
	}
	var out RawSignature
	r.PutBytesUnchecked(out[:32])
	s.PutBytesUnchecked(out[32:])
	return out, nil
}

// parseScalars decodes r and s and brings s to its low form.
func parseScalars(sig RawSignature) (*btcec.ModNScalar, *btcec.ModNScalar, error) {
	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow || r.IsZero() {
		return nil, nil, newError(ErrInvalidSignatureEncoding, "r is not in [1, n-1]", nil)
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow || s.IsZero() {
		return nil, nil, newError(ErrInvalidSignatureEncoding, "s is not in [1, n-1]", nil)
	}
	if s.IsOverHalfOrder() {
		s.Negate()
	}
	return &r, &s, nil
}

// SignedTx is a transaction with every input's scriptSig in place. It is
// never modified after assembly.
type SignedTx struct {
	msgTx *wire.MsgTx
}

// MsgTx returns a deep copy of the wire transaction.
func (tx *SignedTx) MsgTx() *wire.MsgTx {
	return tx.msgTx.Copy()
}

func (tx *SignedTx) InputCount() int  { return len(tx.msgTx.TxIn) }
func (tx *SignedTx) OutputCount() int { return len(tx.msgTx.TxOut) }

// Assembler seals inputs one at a time as signatures arrive. Sealing an input
// never touches any other input.
type Assembler struct {
	tx      *UnsignedTx
	msgTx   *wire.MsgTx
	script  RedeemScript
	keys    []*btcec.PublicKey
	digests []SighashDigest
	sealed  []bool
}

// NewAssembler prepares the assembly of tx signed against script. tx itself
// is not modified.
func NewAssembler(tx *UnsignedTx, script RedeemScript) (*Assembler, error) {
	keys, err := scriptPubKeys(script)
	if err != nil {
		return nil, err
	}
	digests, err := DigestsToSign(tx, script)
	if err != nil {
		return nil, err
	}
	return &Assembler{
		tx:      tx,
		msgTx:   tx.msgTx.Copy(),
		script:  append(RedeemScript(nil), script...),
		keys:    keys,
		digests: digests,
		sealed:  make([]bool, len(tx.msgTx.TxIn)),
	}, nil
}

// Seal canonicalizes sig, checks it against the digest of input idx and
// writes that input's scriptSig.
func (a *Assembler) Seal(idx int, sig RawSignature) error {
	if idx < 0 || idx >= len(a.sealed) {
		return newError(ErrInputIndexOutOfRange,
			fmt.Sprintf("input %d out of range [0, %d)", idx, len(a.sealed)), nil)
	}
	r, s, err := parseScalars(sig)
	if err != nil {
		return newError(ErrInvalidSignatureEncoding, fmt.Sprintf("input %d", idx), err)
	}
	signature := ecdsa.NewSignature(r, s)
	if !a.verifies(signature, a.digests[idx]) {
		return newError(ErrSignatureMismatch,
			fmt.Sprintf("signature of input %d does not match digest %s", idx, a.digests[idx]), nil)
	}

	der := append(signature.Serialize(), byte(txscript.SigHashAll))
	scriptSig, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(der).
		AddData(a.script).
		Script()
	if err != nil {
		return newError(ErrScriptBuild, fmt.Sprintf("cannot build scriptSig of input %d", idx), err)
	}
	a.msgTx.TxIn[idx].SignatureScript = scriptSig
	a.sealed[idx] = true
	return nil
}

func (a *Assembler) verifies(sig *ecdsa.Signature, digest SighashDigest) bool {
	for _, key := range a.keys {
		if sig.Verify(digest[:], key) {
			return true
		}
	}
	return false
}

// Sealed reports whether input idx already has its scriptSig.
func (a *Assembler) Sealed(idx int) bool {
	return idx >= 0 && idx < len(a.sealed) && a.sealed[idx]
}

// Finish returns the signed transaction once every input is sealed.
func (a *Assembler) Finish() (*SignedTx, error) {
	for i, ok := range a.sealed {
		if !ok {
			return nil, newError(ErrIncompleteSignatures, fmt.Sprintf("input %d has no signature", i), nil)
		}
	}
	return &SignedTx{msgTx: a.msgTx.Copy()}, nil
}

// AssembleSignedTransaction splits blob into one RawSignature per input, in
// input order, and seals every input.
func AssembleSignedTransaction(tx *UnsignedTx, script RedeemScript, blob []byte) (*SignedTx, error) {
	n := len(tx.msgTx.TxIn)
	if len(blob) != n*RawSignatureSize {
		return nil, newError(ErrSignatureBlobLengthMismatch,
			fmt.Sprintf("signature blob is %d bytes, want %d for %d inputs", len(blob), n*RawSignatureSize, n), nil)
	}
	a, err := NewAssembler(tx, script)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		var sig RawSignature
		copy(sig[:], blob[i*RawSignatureSize:(i+1)*RawSignatureSize])
		if err := a.Seal(i, sig); err != nil {
			return nil, err
		}
	}
	return a.Finish()
}
