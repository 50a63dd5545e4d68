// Package signer holds the collaborators that turn sighash digests into the
// 64-byte-per-input signature blob the multisig engine assembles.
package signer

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"

	"p2sh_multisig/multisig"
)

// Signer signs digests in order and returns their r||s signatures
// concatenated. A failed or cancelled exchange returns an error and no blob.
type Signer interface {
	SignHashes(ctx context.Context, digests []multisig.SighashDigest) ([]byte, error)
}

// KeySigner signs with a private key held in process. It is meant for
// regtest and development; production signatures come from the card.
type KeySigner struct {
	key *btcec.PrivateKey
}

func NewKeySigner(key *btcec.PrivateKey) *KeySigner {
	return &KeySigner{key: key}
}

// NewKeySignerFromWIF decodes a WIF private key.
func NewKeySignerFromWIF(wif string) (*KeySigner, error) {
	w, err := btcutil.DecodeWIF(strings.TrimSpace(wif))
	if err != nil {
		return nil, fmt.Errorf("decode WIF: %w", err)
	}
	return NewKeySigner(w.PrivKey), nil
}

// PublicKey returns the compressed public key of the signer.
func (s *KeySigner) PublicKey() multisig.PublicKey {
	var pk multisig.PublicKey
	copy(pk[:], s.key.PubKey().SerializeCompressed())
	return pk
}

func (s *KeySigner) SignHashes(ctx context.Context, digests []multisig.SighashDigest) ([]byte, error) {
	blob := make([]byte, 0, len(digests)*multisig.RawSignatureSize)
	for _, d := range digests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		compact := ecdsa.SignCompact(s.key, d[:], true)
		// Drop the recovery byte.
		blob = append(blob, compact[1:]...)
	}
	return blob, nil
}

// StreamSigner hands digests to a device over a line based channel: it
// writes one hex digest per line followed by an empty line, then reads one
// line holding the hex signature blob. Calls are serialized. A call
// cancelled while waiting for the reply leaves a read pending on the
// channel, so the signer refuses further requests with ErrAbandoned.
type StreamSigner struct {
	mu        sync.Mutex
	abandoned bool
	w         io.Writer
	r         *bufio.Reader
}

// ErrAbandoned is returned by a StreamSigner after a cancelled request.
var ErrAbandoned = errors.New("stream signer abandoned after a cancelled request")

func NewStreamSigner(r io.Reader, w io.Writer) *StreamSigner {
	return &StreamSigner{w: w, r: bufio.NewReader(r)}
}

type readResult struct {
	line string
	err  error
}

func (s *StreamSigner) SignHashes(ctx context.Context, digests []multisig.SighashDigest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abandoned {
		return nil, ErrAbandoned
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var b strings.Builder
	for _, d := range digests {
		b.WriteString(d.String())
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return nil, fmt.Errorf("write digests: %w", err)
	}

	// The read blocks on the device; a cancelled ctx abandons it.
	ch := make(chan readResult, 1)
	go func() {
		line, err := s.r.ReadString('\n')
		ch <- readResult{line: line, err: err}
	}()

	var res readResult
	select {
	case <-ctx.Done():
		s.abandoned = true
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.err != nil && (res.err != io.EOF || res.line == "") {
		return nil, fmt.Errorf("read signatures: %w", res.err)
	}
	blob, err := hex.DecodeString(strings.TrimSpace(res.line))
	if err != nil {
		return nil, fmt.Errorf("decode signatures: %w", err)
	}
	if len(blob) != len(digests)*multisig.RawSignatureSize {
		return nil, fmt.Errorf("signer returned %d bytes for %d digests", len(blob), len(digests))
	}
	return blob, nil
}
