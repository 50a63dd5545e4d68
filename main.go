package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/decred/slog"

	"p2sh_multisig/config"
	"p2sh_multisig/multisig"
	"p2sh_multisig/node"
	"p2sh_multisig/signer"
)

const usage = `usage: p2sh_multisig <command> [flags]

commands:
  address   print the wallet address
  sync      refresh the local UTXO set from the node
  send      build, sign and optionally broadcast a payment
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)
	logConfig(os.Stderr, cfg)

	wallet, err := walletFromConfig(cfg)
	if err != nil {
		return err
	}

	switch cmd {
	case "address":
		addr := wallet.Address()
		fmt.Println(addr.Value)
		if addr.Kind == multisig.P2SHMultisig {
			fmt.Println("redeemScript:", addr.RedeemScript)
		} else {
			fmt.Println("(no multisig peer key configured)")
		}
		return nil
	case "sync":
		return runSync(ctx, cfg, wallet)
	case "send":
		return runSend(ctx, cfg, wallet, args)
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}

// logConfig prints the loaded configuration, secrets masked, when running
// at debug level or below.
func logConfig(w io.Writer, cfg *config.Config) {
	if log.Level() > slog.LevelDebug {
		return
	}
	cfg.PrintConfig(w)
}

func walletFromConfig(cfg *config.Config) (*multisig.Wallet, error) {
	net, err := multisig.NetworkByName(cfg.Network)
	if err != nil {
		return nil, err
	}
	a, err := multisig.ParsePublicKeyHex(cfg.PubKeyA)
	if err != nil {
		return nil, fmt.Errorf("PUBKEY_A: %w", err)
	}
	var b *multisig.PublicKey
	if cfg.PubKeyB != "" {
		pk, err := multisig.ParsePublicKeyHex(cfg.PubKeyB)
		if err != nil {
			return nil, fmt.Errorf("PUBKEY_B: %w", err)
		}
		b = &pk
	}
	return multisig.NewWallet(a, b, net)
}

func openSession(cfg *config.Config, wallet *multisig.Wallet, s signer.Signer,
	records chan<- SignedTxRecord) (*Session, *ActiveUTXOStore, error) {

	if err := cfg.RequireRPC(); err != nil {
		return nil, nil, err
	}
	store, err := NewActiveUTXOStore(cfg.UTXODBPath)
	if err != nil {
		return nil, nil, err
	}
	daemon := node.NewBTCDaemon(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword, cfg.RPCSessions)
	return NewSession(wallet, store, daemon, daemon, s, records), store, nil
}

func runSync(ctx context.Context, cfg *config.Config, wallet *multisig.Wallet) error {
	session, store, err := openSession(cfg, wallet, nil, nil)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := session.Sync(ctx); err != nil {
		return err
	}
	total, n, err := session.Balance()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d outputs, %v\n", wallet.Address().Value, n, total)
	return nil
}

func runSend(ctx context.Context, cfg *config.Config, wallet *multisig.Wallet, args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	to := fs.String("to", "", "Destination address")
	amount := fs.Int64("amount", 0, "Amount in satoshi")
	fee := fs.Int64("fee", 0, "Fee in satoshi")
	feeMode := fs.String("fee-mode", "change", "Which output pays the fee: included or change")
	broadcast := fs.Bool("broadcast", false, "Publish the signed transaction")
	signerKind := fs.String("signer", "stream", "Signer to use: stream (stdin/stdout) or key (SIGNER_WIF)")
	noSync := fs.Bool("no-sync", false, "Spend the stored UTXO set without asking the node first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := multisig.ParseFeeMode(*feeMode)
	if err != nil {
		return err
	}

	var s signer.Signer
	switch *signerKind {
	case "stream":
		s = signer.NewStreamSigner(os.Stdin, os.Stdout)
	case "key":
		if cfg.SignerWIF == "" {
			return fmt.Errorf("-signer key needs SIGNER_WIF")
		}
		if s, err = signer.NewKeySignerFromWIF(cfg.SignerWIF); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown signer %q", *signerKind)
	}

	records := make(chan SignedTxRecord, 16)
	var done <-chan error
	if cfg.ExportFormat == "parquet" {
		done, err = StartSignedTxWriterParquet(cfg.ExportPath, records, 100, 3*time.Second)
	} else {
		done, err = StartSignedTxWriter(cfg.ExportPath, records, 100, 3*time.Second)
	}
	if err != nil {
		return err
	}

	session, store, err := openSession(cfg, wallet, s, records)
	if err != nil {
		close(records)
		<-done
		return err
	}
	defer store.Close()

	res, sendErr := func() (*SendResult, error) {
		if !*noSync {
			if _, err := session.Sync(ctx); err != nil {
				return nil, err
			}
		}
		return session.Send(ctx, SendRequest{
			Destination: *to,
			Amount:      btcutil.Amount(*amount),
			Fee:         btcutil.Amount(*fee),
			FeeMode:     mode,
			Broadcast:   *broadcast,
		})
	}()
	close(records)
	if err := <-done; err != nil {
		log.Errorf("Export to %s failed: %v", cfg.ExportPath, err)
	}
	if sendErr != nil {
		if res != nil && res.Broadcast {
			fmt.Fprintln(os.Stderr, "txid:", res.TxID, "(broadcast)")
		}
		return sendErr
	}

	fmt.Fprintln(os.Stderr, "txid:", res.TxID)
	if res.Broadcast {
		fmt.Fprintln(os.Stderr, "broadcast: accepted")
	}
	fmt.Fprintln(os.Stderr, "hex:", multisig.SerializeHex(res.Signed))
	return nil
}
