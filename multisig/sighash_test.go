package multisig

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestsToSignDeterministic(t *testing.T) {
	w := testWallet(t)
	tx, err := w.BuildUnsignedTransaction(testUTXOs(t, w, 1000, 2000, 3000), 2500, 100, FeeAddedToChange, destination(t, MainNet))
	require.NoError(t, err)

	first, err := DigestsToSign(tx, w.RedeemScript())
	require.NoError(t, err)
	second, err := DigestsToSign(tx, w.RedeemScript())
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)

	// Each input commits to its own index.
	assert.NotEqual(t, first[0], first[1])
	assert.NotEqual(t, first[1], first[2])
}

func TestDigestsUseRedeemScript(t *testing.T) {
	w := testWallet(t)
	utxos := testUTXOs(t, w, 100000)
	tx, err := w.BuildUnsignedTransaction(utxos, 50000, 1000, FeeAddedToChange, destination(t, MainNet))
	require.NoError(t, err)

	digests, err := DigestsToSign(tx, w.RedeemScript())
	require.NoError(t, err)

	want, err := txscript.CalcSignatureHash(w.RedeemScript(), txscript.SigHashAll, tx.MsgTx(), 0)
	require.NoError(t, err)
	assert.Equal(t, want, digests[0][:])

	// Signing against the P2SH locking script would be a different message.
	wrong, err := txscript.CalcSignatureHash(utxos[0].PkScript, txscript.SigHashAll, tx.MsgTx(), 0)
	require.NoError(t, err)
	assert.NotEqual(t, wrong, digests[0][:])
}

func TestDigestsDoNotMutateTx(t *testing.T) {
	w := testWallet(t)
	tx, err := w.BuildUnsignedTransaction(testUTXOs(t, w, 1000, 2000), 2500, 100, FeeAddedToChange, destination(t, MainNet))
	require.NoError(t, err)
	before := tx.MsgTx().TxHash()
	_, err = DigestsToSign(tx, w.RedeemScript())
	require.NoError(t, err)
	assert.Equal(t, before, tx.MsgTx().TxHash())
	for _, in := range tx.MsgTx().TxIn {
		assert.Empty(t, in.SignatureScript)
	}
}

func TestSigningPayloadMethods(t *testing.T) {
	w := testWallet(t)
	tx, err := w.BuildUnsignedTransaction(testUTXOs(t, w, 100000), 50000, 1000, FeeAddedToChange, destination(t, MainNet))
	require.NoError(t, err)

	digests, err := SigningPayload(SignHash, tx, w.RedeemScript())
	require.NoError(t, err)
	assert.Len(t, digests, 1)

	tests := []struct {
		method SigningMethod
		code   ErrorCode
	}{
		{SignRaw, ErrRawSigningNotSupported},
		{SignHashIssuerValidated, ErrIssuerValidationNotSupported},
		{SigningMethod(42), ErrUnsupportedSigningMethod},
	}
	for _, tc := range tests {
		_, err := SigningPayload(tc.method, tx, w.RedeemScript())
		assert.True(t, IsErrorCode(err, tc.code), "%s: %v", tc.method, err)
		assert.False(t, Retryable(err))
		assert.Equal(t, ClassUnsupported, tc.code.Class())
	}
	assert.Equal(t, []SigningMethod{SignHash}, SupportedSigningMethods)
}

func TestDigestsEmptyScript(t *testing.T) {
	w := testWallet(t)
	tx, err := w.BuildUnsignedTransaction(testUTXOs(t, w, 100000), 50000, 1000, FeeAddedToChange, destination(t, MainNet))
	require.NoError(t, err)
	_, err = DigestsToSign(tx, nil)
	assert.True(t, IsErrorCode(err, ErrInvalidRedeemScript))
}

func TestDigestsKnownAnswer(t *testing.T) {
	// Compressed public keys of the private keys 1 and 2.
	one, err := ParsePublicKeyHex("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	require.NoError(t, err)
	two, err := ParsePublicKeyHex("02c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee5")
	require.NoError(t, err)
	w, err := NewWallet(two, &one, MainNet)
	require.NoError(t, err)
	assert.Equal(t, "51210279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"+
		"2102c6047f9441ed7d6d3045406e95c07cd85c778e4b8cef3ca7abac09b95c709ee552ae", w.RedeemScript().String())
	assert.Equal(t, "38fEX6RbBBMmpu3nbbuULku1xyrrzqqqnE", w.Address().Value)

	pkScript, err := w.PkScript()
	require.NoError(t, err)
	hashA, err := chainhash.NewHashFromStr("702f4a9215e537bcadc4c9d470dc49ff7a987b5a770ae2653244b773886c5315")
	require.NoError(t, err)
	hashB, err := chainhash.NewHashFromStr("0e3e2357e806b6cdb1f70b54c3a3a17b6714ee1f0e68bebb44a74b1efd512098")
	require.NoError(t, err)
	utxos := []UTXO{
		{Hash: *hashA, Index: 0, PkScript: pkScript, Value: 100000},
		{Hash: *hashB, Index: 1, PkScript: pkScript, Value: 50000},
	}

	tx, err := w.BuildUnsignedTransaction(utxos, 120000, 1000, FeeAddedToChange, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tx.MsgTx().Serialize(&buf))
	assert.Equal(t, "010000000215536c8873b7443265e20a775a7b987aff49dc70d4c9c4adbc37e515924a2f70"+
		"0000000000ffffffff982051fd1e4ba744bbbe680e1fee14677ba1a3c3540bf7b1cdb606e857233e0e"+
		"0100000000ffffffff02c0d40100000000001976a914751e76e8199196d454941c45d1b3a323f1433bd688ac"+
		"487100000000000017a9144c72901bbfedcb86eef17d0e94b36dbc3c9f39128700000000",
		hex.EncodeToString(buf.Bytes()))

	digests, err := w.DigestsToSign(tx)
	require.NoError(t, err)
	require.Len(t, digests, 2)
	assert.Equal(t, "317b4666f2d071a9d3f9b6da95bc79acbf187768f347bbf18622a34e30cca8e8", hex.EncodeToString(digests[0][:]))
	assert.Equal(t, "45f0d46f6a87406f138de3450e8af0c8451bf6c3f12e77e28c1e538b70ecd900", hex.EncodeToString(digests[1][:]))
}
