package multisig

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

var (
	privA, keyA = testKey(0x11)
	privB, keyB = testKey(0x22)
	privC, keyC = testKey(0x33)
)

func testKey(seed byte) (*btcec.PrivateKey, PublicKey) {
	priv, pub := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
	var pk PublicKey
	copy(pk[:], pub.SerializeCompressed())
	return priv, pk
}

func testWallet(t *testing.T) *Wallet {
	t.Helper()
	w, err := NewWallet(keyA, &keyB, MainNet)
	require.NoError(t, err)
	return w
}

// destination is a P2PKH address of an unrelated key.
func destination(t *testing.T, net *Network) string {
	t.Helper()
	addr, err := btcutil.NewAddressPubKeyHash(btcutil.Hash160(keyC[:]), net.Params)
	require.NoError(t, err)
	return addr.EncodeAddress()
}

func testUTXOs(t *testing.T, w *Wallet, values ...int64) []UTXO {
	t.Helper()
	pkScript, err := w.PkScript()
	require.NoError(t, err)
	utxos := make([]UTXO, len(values))
	for i, v := range values {
		utxos[i] = UTXO{
			Hash:     chainhash.DoubleHashH([]byte{byte(i), 0xaa}),
			Index:    uint32(i),
			PkScript: pkScript,
			Value:    btcutil.Amount(v),
		}
	}
	return utxos
}

// signBlob plays the external signer: one r||s per digest.
func signBlob(t *testing.T, priv *btcec.PrivateKey, digests []SighashDigest) []byte {
	t.Helper()
	blob := make([]byte, 0, len(digests)*RawSignatureSize)
	for _, d := range digests {
		compact := ecdsa.SignCompact(priv, d[:], true)
		blob = append(blob, compact[1:]...)
	}
	return blob
}

// highS flips s to n-s.
func highS(sig RawSignature) RawSignature {
	var s btcec.ModNScalar
	s.SetByteSlice(sig[32:])
	s.Negate()
	s.PutBytesUnchecked(sig[32:])
	return sig
}

// verifyInputs runs every input of tx through the script engine.
func verifyInputs(t *testing.T, tx *wire.MsgTx, utxos []UTXO) {
	t.Helper()
	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(utxos))
	for _, u := range utxos {
		prevOuts[u.OutPoint()] = wire.NewTxOut(int64(u.Value), u.PkScript)
	}
	fetcher := txscript.NewMultiPrevOutFetcher(prevOuts)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	for i, u := range utxos {
		vm, err := txscript.NewEngine(u.PkScript, tx, i, txscript.StandardVerifyFlags,
			nil, sigHashes, int64(u.Value), fetcher)
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), "input %d", i)
	}
}
