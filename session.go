package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"p2sh_multisig/chain"
	"p2sh_multisig/multisig"
	"p2sh_multisig/node"
	"p2sh_multisig/signer"
)

// Broadcaster is the part of the node a Session publishes through.
type Broadcaster interface {
	DecodeRawTransaction(ctx context.Context, raw []byte) (*chain.Tx, error)
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
}

// Session ties a wallet to its UTXO store, the node and a signer.
type Session struct {
	wallet  *multisig.Wallet
	store   *ActiveUTXOStore
	fetcher *node.UnspentFetcher
	node    Broadcaster
	signer  signer.Signer

	// records receives one row per signed transaction. May be nil.
	records chan<- SignedTxRecord
}

func NewSession(wallet *multisig.Wallet, store *ActiveUTXOStore, source node.UnspentSource,
	bc Broadcaster, s signer.Signer, records chan<- SignedTxRecord) *Session {

	return &Session{
		wallet:  wallet,
		store:   store,
		fetcher: node.NewUnspentFetcher(source, 1, 1),
		node:    bc,
		signer:  s,
		records: records,
	}
}

// Sync replaces the stored outputs of the wallet address with what the node
// reports and returns their number.
func (s *Session) Sync(ctx context.Context) (int, error) {
	if err := s.wallet.CanSpend(); err != nil {
		return 0, err
	}
	address := s.wallet.Address().Value
	results, err := s.fetcher.Fetch(ctx, []string{address})
	if err != nil {
		return 0, fmt.Errorf("sync %s: %w", address, err)
	}
	n, err := s.store.ReplaceAddress(address, results[0])
	if err != nil {
		return 0, err
	}
	log.Infof("Synced %d unspent outputs for %s", n, address)
	return n, nil
}

// Balance sums the stored outputs of the wallet address.
func (s *Session) Balance() (btcutil.Amount, int, error) {
	utxos, err := s.store.ForAddress(s.wallet.Address().Value)
	if err != nil {
		return 0, 0, err
	}
	var total btcutil.Amount
	for _, u := range utxos {
		total += btcutil.Amount(u.Value)
	}
	return total, len(utxos), nil
}

type SendRequest struct {
	Destination string
	Amount      btcutil.Amount
	Fee         btcutil.Amount
	FeeMode     multisig.FeeMode

	// Broadcast publishes the transaction after a decode check by the node.
	Broadcast bool
}

type SendResult struct {
	Unsigned *multisig.UnsignedTx
	Signed   *multisig.SignedTx
	Raw      []byte
	TxID     string

	// Broadcast is set once the node accepted the transaction.
	Broadcast bool
}

// Send spends every stored output of the wallet per req. When the signer
// fails the unsigned transaction is dropped and nothing is recorded. An error
// after a successful broadcast comes with a non-nil result.
func (s *Session) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	address := s.wallet.Address().Value
	stored, err := s.store.ForAddress(address)
	if err != nil {
		return nil, err
	}
	utxos := make([]multisig.UTXO, 0, len(stored))
	for _, u := range stored {
		utxo, err := u.UTXO()
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, utxo)
	}

	unsigned, err := s.wallet.BuildUnsignedTransaction(utxos, req.Amount, req.Fee, req.FeeMode, req.Destination)
	if err != nil {
		return nil, err
	}
	digests, err := s.wallet.DigestsToSign(unsigned)
	if err != nil {
		return nil, err
	}
	log.Debugf("Requesting %d signatures", len(digests))

	blob, err := s.signer.SignHashes(ctx, digests)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	signed, err := s.wallet.AssembleSignedTransaction(unsigned, blob)
	if err != nil {
		return nil, err
	}

	res := &SendResult{
		Unsigned: unsigned,
		Signed:   signed,
		Raw:      multisig.Serialize(signed),
		TxID:     signed.TxHash().String(),
	}

	if req.Broadcast {
		if err := s.broadcast(ctx, res); err != nil {
			return nil, err
		}
		// The transaction is live from here on; res goes back even on error.
		removed, err := s.store.MarkSpent(address, signed)
		if err != nil {
			log.Errorf("Broadcast %s but failed to mark its inputs spent: %v", res.TxID, err)
			s.export(res, req)
			return res, fmt.Errorf("mark spent: %w", err)
		}
		log.Debugf("Marked %d outputs spent", removed)
	}

	s.export(res, req)
	log.Infof("Signed %s: %d inputs, payment %v, change %v, fee %v",
		res.TxID, signed.InputCount(), unsigned.Payment(), unsigned.Change(), unsigned.Fee())
	return res, nil
}

func (s *Session) broadcast(ctx context.Context, res *SendResult) error {
	decoded, err := s.node.DecodeRawTransaction(ctx, res.Raw)
	if err != nil {
		return fmt.Errorf("decode check: %w", err)
	}
	if decoded.TxID != res.TxID {
		return fmt.Errorf("node decoded txid %s, want %s", decoded.TxID, res.TxID)
	}
	out, err := decoded.OutputTotal()
	if err != nil {
		return err
	}
	if out != res.Unsigned.OutputTotal() {
		return fmt.Errorf("node decoded outputs of %v, want %v", out, res.Unsigned.OutputTotal())
	}

	txid, err := s.node.SendRawTransaction(ctx, res.Raw)
	if err != nil {
		return fmt.Errorf("broadcast: %w", err)
	}
	if txid != res.TxID {
		return errors.New("node accepted " + txid + ", want " + res.TxID)
	}
	res.Broadcast = true
	return nil
}

func (s *Session) export(res *SendResult, req SendRequest) {
	if s.records == nil {
		return
	}
	s.records <- SignedTxRecord{
		TxID:        res.TxID,
		Address:     s.wallet.Address().Value,
		Destination: req.Destination,
		Amount:      int64(res.Unsigned.Payment()),
		Fee:         int64(res.Unsigned.Fee()),
		Change:      int64(res.Unsigned.Change()),
		FeeMode:     req.FeeMode.String(),
		Inputs:      int32(res.Signed.InputCount()),
		Outputs:     int32(res.Signed.OutputCount()),
		RawHex:      multisig.SerializeHex(res.Signed),
		Broadcast:   res.Broadcast,
		CreatedAt:   time.Now().UnixMilli(),
	}
}
