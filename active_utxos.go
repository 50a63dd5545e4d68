package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/slog"
	"github.com/dgraph-io/badger/v4"
	"github.com/jinzhu/copier"

	"p2sh_multisig/chain"
	"p2sh_multisig/multisig"
)

// ActiveUTXOStore is the local view of the wallet's unspent outputs.
// Entries live under "<address>/<txid>_<vout>" so one address is a prefix.
type ActiveUTXOStore struct {
	mu sync.Mutex
	db *badger.DB
}

type ActiveUTXO struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Address       string `json:"address"`
	ScriptPubKey  string `json:"scriptPubKey"`
	Value         int64  `json:"value"` // Value in satoshi
	Confirmations int64  `json:"confirmations"`
}

func (u ActiveUTXO) Key() string {
	return utxoKey(u.Address, u.TxID, u.Vout)
}

// UTXO converts u to an engine input.
func (u ActiveUTXO) UTXO() (multisig.UTXO, error) {
	var utxo multisig.UTXO
	hash, err := chainhash.NewHashFromStr(u.TxID)
	if err != nil {
		return utxo, fmt.Errorf("txid %q: %w", u.TxID, err)
	}
	pkScript, err := hex.DecodeString(u.ScriptPubKey)
	if err != nil {
		return utxo, fmt.Errorf("scriptPubKey of %s: %w", u.Key(), err)
	}
	utxo.Hash = *hash
	utxo.Index = u.Vout
	utxo.PkScript = pkScript
	utxo.Value = btcutil.Amount(u.Value)
	return utxo, nil
}

func utxoKey(address, txid string, vout uint32) string {
	return fmt.Sprintf("%s/%s_%d", address, txid, vout)
}

func addressPrefix(address string) []byte {
	return []byte(address + "/")
}

// FromUnspent converts a listunspent entry. The satoshi value and the
// validation of txid and script come from chain.Unspent.UTXO.
func FromUnspent(u chain.Unspent) (ActiveUTXO, error) {
	var utxo ActiveUTXO
	converted, err := u.UTXO()
	if err != nil {
		return utxo, err
	}
	if err := copier.Copy(&utxo, &u); err != nil {
		return utxo, err
	}
	utxo.Value = int64(converted.Value)
	return utxo, nil
}

// NewActiveUTXOStore opens the store at dbPath. An empty dbPath keeps
// everything in memory.
func NewActiveUTXOStore(dbPath string) (*ActiveUTXOStore, error) {
	opts := badger.DefaultOptions(dbPath).WithLogger(badgerLogger{log})
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open utxo db: %w", err)
	}
	return &ActiveUTXOStore{db: db}, nil
}

func (s *ActiveUTXOStore) Add(utxo ActiveUTXO) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(utxo)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(utxo.Key()), data)
	})
}

func (s *ActiveUTXOStore) Get(key string) (ActiveUTXO, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var utxo ActiveUTXO
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &utxo)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			log.Errorf("[Get] Failed to read %s: %v", key, err)
		}
		return ActiveUTXO{}, false
	}
	return utxo, true
}

func (s *ActiveUTXOStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// ForAddress returns the outputs held by address in key order.
func (s *ActiveUTXOStore) ForAddress(address string) ([]ActiveUTXO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var utxos []ActiveUTXO
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := addressPrefix(address)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var utxo ActiveUTXO
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &utxo)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			utxos = append(utxos, utxo)
		}
		return nil
	})
	return utxos, err
}

// ReplaceAddress swaps the stored outputs of address for unspent in one
// transaction. Entries paying elsewhere are ignored.
func (s *ActiveUTXOStore) ReplaceAddress(address string, unspent []chain.Unspent) (int, error) {
	fresh := make([]ActiveUTXO, 0, len(unspent))
	for _, u := range unspent {
		if u.Address != address {
			log.Warnf("[Replace] Skipping %s:%d paying to %s", u.TxID, u.Vout, u.Address)
			continue
		}
		utxo, err := FromUnspent(u)
		if err != nil {
			return 0, err
		}
		fresh = append(fresh, utxo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := addressPrefix(address)
	err := s.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for _, utxo := range fresh {
			data, err := json.Marshal(utxo)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(utxo.Key()), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", address, err)
	}
	log.Debugf("[Replace] %s now holds %d outputs", address, len(fresh))
	return len(fresh), nil
}

// MarkSpent drops the outputs of address consumed by tx and returns how
// many were removed.
func (s *ActiveUTXOStore) MarkSpent(address string, tx *multisig.SignedTx) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, in := range tx.MsgTx().TxIn {
			prev := in.PreviousOutPoint
			key := []byte(utxoKey(address, prev.Hash.String(), prev.Index))
			if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
				continue
			} else if err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *ActiveUTXOStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		log.Errorf("[Len] %v", err)
	}
	return n
}

func (s *ActiveUTXOStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's own messages through slog. Badger is chatty
// at info level so that goes to debug.
type badgerLogger struct {
	slog.Logger
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.Logger.Debugf("badger: "+format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Logger.Warnf("badger: "+format, args...)
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Errorf("badger: "+format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Tracef("badger: "+format, args...)
}
