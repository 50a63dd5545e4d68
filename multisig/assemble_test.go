package multisig

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTx(t *testing.T, w *Wallet, values ...int64) (*UnsignedTx, []SighashDigest) {
	t.Helper()
	tx, err := w.BuildUnsignedTransaction(testUTXOs(t, w, values...), 1500, 200, FeeAddedToChange, destination(t, MainNet))
	require.NoError(t, err)
	digests, err := w.DigestsToSign(tx)
	require.NoError(t, err)
	return tx, digests
}

func TestCanonicalizeIdempotent(t *testing.T) {
	_, digests := buildTx(t, testWallet(t), 5000)
	var low RawSignature
	copy(low[:], signBlob(t, privA, digests))

	again, err := Canonicalize(low)
	require.NoError(t, err)
	assert.Equal(t, low, again, "low-S signature must be unchanged")

	high := highS(low)
	require.NotEqual(t, low, high)
	fixed, err := Canonicalize(high)
	require.NoError(t, err)
	assert.Equal(t, low, fixed)
	assert.Equal(t, low.R(), fixed.R())

	twice, err := Canonicalize(fixed)
	require.NoError(t, err)
	assert.Equal(t, fixed, twice)

	var s btcec.ModNScalar
	s.SetByteSlice(high[32:])
	assert.True(t, s.IsOverHalfOrder())
	sLow := fixed.S()
	s.SetByteSlice(sLow[:])
	assert.False(t, s.IsOverHalfOrder())
}

func TestCanonicalizeRejectsOutOfRange(t *testing.T) {
	var zero RawSignature
	_, err := Canonicalize(zero)
	assert.True(t, IsErrorCode(err, ErrInvalidSignatureEncoding))

	var overflow RawSignature
	for i := range overflow {
		overflow[i] = 0xff
	}
	_, err = Canonicalize(overflow)
	assert.True(t, IsErrorCode(err, ErrInvalidSignatureEncoding))
	assert.True(t, Retryable(err))
}

func TestAssembleRoundTrip(t *testing.T) {
	w := testWallet(t)
	for _, priv := range []*btcec.PrivateKey{privA, privB} {
		tx, digests := buildTx(t, w, 1000, 700, 300)
		signed, err := w.AssembleSignedTransaction(tx, signBlob(t, priv, digests))
		require.NoError(t, err)

		raw := Serialize(signed)
		var decoded wire.MsgTx
		require.NoError(t, decoded.Deserialize(bytes.NewReader(raw)))
		assert.Len(t, decoded.TxIn, tx.InputCount())
		assert.Len(t, decoded.TxOut, tx.OutputCount())
		assert.Equal(t, signed.TxHash(), decoded.TxHash())

		verifyInputs(t, &decoded, tx.UTXOs())
	}
}

func TestAssembleScriptSigLayout(t *testing.T) {
	w := testWallet(t)
	tx, digests := buildTx(t, w, 5000)
	signed, err := AssembleSignedTransaction(tx, w.RedeemScript(), signBlob(t, privB, digests))
	require.NoError(t, err)

	scriptSig := signed.MsgTx().TxIn[0].SignatureScript
	pushes, err := txscript.PushedData(scriptSig)
	require.NoError(t, err)
	require.Len(t, pushes, 3)
	assert.Empty(t, pushes[0], "OP_0 dummy for CHECKMULTISIG")
	assert.Equal(t, byte(txscript.SigHashAll), pushes[1][len(pushes[1])-1])
	assert.Equal(t, []byte(w.RedeemScript()), pushes[2])
	assert.True(t, txscript.IsPushOnlyScript(scriptSig))
}

func TestAssembleHighSSignatures(t *testing.T) {
	w := testWallet(t)
	tx, digests := buildTx(t, w, 4000, 6000)
	blob := signBlob(t, privA, digests)
	for i := 0; i < len(digests); i++ {
		var sig RawSignature
		copy(sig[:], blob[i*RawSignatureSize:])
		high := highS(sig)
		copy(blob[i*RawSignatureSize:], high[:])
	}

	signed, err := w.AssembleSignedTransaction(tx, blob)
	require.NoError(t, err)
	verifyInputs(t, signed.MsgTx(), tx.UTXOs())
}

func TestAssembleBlobLengthMismatch(t *testing.T) {
	w := testWallet(t)
	tx, digests := buildTx(t, w, 4000, 6000)
	blob := signBlob(t, privA, digests)

	for _, b := range [][]byte{nil, blob[:RawSignatureSize], append(blob, 0)} {
		_, err := w.AssembleSignedTransaction(tx, b)
		assert.True(t, IsErrorCode(err, ErrSignatureBlobLengthMismatch), "len %d", len(b))
		assert.True(t, Retryable(err))
	}
}

func TestAssembleRejectsForeignSignature(t *testing.T) {
	w := testWallet(t)
	tx, digests := buildTx(t, w, 4000)
	_, err := w.AssembleSignedTransaction(tx, signBlob(t, privC, digests))
	assert.True(t, IsErrorCode(err, ErrSignatureMismatch))

	// Signatures handed back in the wrong order are a desync too.
	tx, digests = buildTx(t, w, 4000, 6000)
	blob := signBlob(t, privA, []SighashDigest{digests[1], digests[0]})
	_, err = w.AssembleSignedTransaction(tx, blob)
	assert.True(t, IsErrorCode(err, ErrSignatureMismatch))
	assert.True(t, Retryable(err))
}

func TestAssembleZeroSignature(t *testing.T) {
	w := testWallet(t)
	tx, _ := buildTx(t, w, 4000)
	_, err := w.AssembleSignedTransaction(tx, make([]byte, RawSignatureSize))
	assert.True(t, IsErrorCode(err, ErrInvalidSignatureEncoding))
}

func TestAssemblerIncremental(t *testing.T) {
	w := testWallet(t)
	tx, digests := buildTx(t, w, 4000, 6000, 100)
	blob := signBlob(t, privB, digests)
	sigAt := func(i int) RawSignature {
		var sig RawSignature
		copy(sig[:], blob[i*RawSignatureSize:])
		return sig
	}

	a, err := NewAssembler(tx, w.RedeemScript())
	require.NoError(t, err)

	require.NoError(t, a.Seal(2, sigAt(2)))
	assert.True(t, a.Sealed(2))
	assert.False(t, a.Sealed(0))
	_, err = a.Finish()
	assert.True(t, IsErrorCode(err, ErrIncompleteSignatures))

	err = a.Seal(3, sigAt(0))
	assert.True(t, IsErrorCode(err, ErrInputIndexOutOfRange))

	// A bad signature for input 0 leaves input 2 sealed.
	err = a.Seal(0, sigAt(1))
	assert.True(t, IsErrorCode(err, ErrSignatureMismatch))
	assert.True(t, a.Sealed(2))

	require.NoError(t, a.Seal(0, sigAt(0)))
	require.NoError(t, a.Seal(1, sigAt(1)))
	signed, err := a.Finish()
	require.NoError(t, err)
	verifyInputs(t, signed.MsgTx(), tx.UTXOs())

	// The unsigned transaction is untouched.
	for _, in := range tx.MsgTx().TxIn {
		assert.Empty(t, in.SignatureScript)
	}

	whole, err := AssembleSignedTransaction(tx, w.RedeemScript(), blob)
	require.NoError(t, err)
	assert.Equal(t, Serialize(whole), Serialize(signed))
	assert.Equal(t, SerializeHex(whole), SerializeHex(signed))
}

func TestAssembleRejectsNonMultisigScript(t *testing.T) {
	w := testWallet(t)
	tx, _ := buildTx(t, w, 4000)
	_, err := NewAssembler(tx, RedeemScript{txscript.OP_TRUE})
	assert.True(t, IsErrorCode(err, ErrInvalidRedeemScript))
}

func TestErrorCodeStrings(t *testing.T) {
	for code := ErrInvalidKeyCount; code <= ErrScriptBuild; code++ {
		assert.NotContains(t, code.String(), "Unknown", int(code))
	}
	assert.Contains(t, ErrorCode(999).String(), "Unknown")

	err := newError(ErrSighash, "outer", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "outer: "+assert.AnError.Error(), err.Error())
}
