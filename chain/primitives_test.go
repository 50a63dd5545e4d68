package chain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listUnspentJSON = `[{
	"txid": "702f4a9215e537bcadc4c9d470dc49ff7a987b5a770ae2653244b773886c5315",
	"vout": 1,
	"address": "2N8hwP1WmJrFF5QWABn38y63uYLhnJYJYTF",
	"scriptPubKey": "a914a6d6f2ec5c47e4ab8ea8b5bcd1d51ef4ab5c86a887",
	"amount": 0.00100000,
	"confirmations": 6,
	"spendable": false,
	"safe": true
}]`

func TestUnspentUTXO(t *testing.T) {
	var unspent []Unspent
	require.NoError(t, json.Unmarshal([]byte(listUnspentJSON), &unspent))
	require.Len(t, unspent, 1)

	utxo, err := unspent[0].UTXO()
	require.NoError(t, err)
	assert.EqualValues(t, 100000, utxo.Value)
	assert.EqualValues(t, 1, utxo.Index)
	assert.Equal(t, unspent[0].TxID, utxo.Hash.String())
	assert.Len(t, utxo.PkScript, 23)
}

func TestUnspentUTXOErrors(t *testing.T) {
	good := Unspent{
		TxID:         "702f4a9215e537bcadc4c9d470dc49ff7a987b5a770ae2653244b773886c5315",
		ScriptPubKey: "a914",
		Amount:       0.1,
	}
	bad := good
	bad.TxID = "xx"
	_, err := bad.UTXO()
	assert.Error(t, err)

	bad = good
	bad.ScriptPubKey = "zz"
	_, err = bad.UTXO()
	assert.Error(t, err)

	_, err = good.UTXO()
	assert.NoError(t, err)
}

func TestTxOutputTotal(t *testing.T) {
	tx := Tx{Vout: []Vout{{Value: 0.0005, N: 0}, {Value: 0.00049, N: 1}}}
	total, err := tx.OutputTotal()
	require.NoError(t, err)
	assert.EqualValues(t, 99000, total)
}
