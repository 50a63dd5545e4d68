package config

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	RPCUser     string
	RPCPassword string
	RPCURL      string
	RPCSessions int

	Network string

	// PubKeyA is the card key, PubKeyB its multisig peer. An empty
	// PubKeyB selects the single key fallback.
	PubKeyA string
	PubKeyB string

	UTXODBPath   string
	ExportPath   string
	ExportFormat string
	LogLevel     string

	// SignerWIF is a development key for the local signer.
	SignerWIF string
}

// Load reads the given .env files (".env" when none is given) and then the
// process environment. A missing .env file is not an error; variables
// already set in the environment win over file values.
func Load(filenames ...string) (*Config, error) {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	for _, f := range filenames {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := &Config{
		RPCUser:      os.Getenv("RPC_USER"),
		RPCPassword:  os.Getenv("RPC_PASSWORD"),
		RPCURL:       os.Getenv("RPC_URL"),
		RPCSessions:  4,
		Network:      getenv("BTC_NETWORK", "mainnet"),
		PubKeyA:      os.Getenv("PUBKEY_A"),
		PubKeyB:      os.Getenv("PUBKEY_B"),
		UTXODBPath:   getenv("UTXO_DB_PATH", "./utxo_disk_db"),
		ExportPath:   getenv("EXPORT_PATH", "signed_txs.jsonl"),
		ExportFormat: getenv("EXPORT_FORMAT", "json"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		SignerWIF:    os.Getenv("SIGNER_WIF"),
	}
	if s := os.Getenv("RPC_SESSIONS"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("RPC_SESSIONS=%q is not a positive integer", s)
		}
		cfg.RPCSessions = n
	}

	if cfg.PubKeyA == "" {
		return nil, fmt.Errorf("missing required PUBKEY_A")
	}
	switch cfg.ExportFormat {
	case "json", "parquet":
	default:
		return nil, fmt.Errorf("EXPORT_FORMAT=%q, want json or parquet", cfg.ExportFormat)
	}
	return cfg, nil
}

// RequireRPC checks the variables needed to talk to the node.
func (c *Config) RequireRPC() error {
	if c.RPCUser == "" || c.RPCPassword == "" || c.RPCURL == "" {
		return fmt.Errorf("missing required RPC environment variables (RPC_USER, RPC_PASSWORD, RPC_URL)")
	}
	return nil
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (c *Config) PrintConfig(w io.Writer) {
	fmt.Fprintln(w, "Loaded config:")
	fmt.Fprintln(w, "  RPC_URL      =", c.RPCURL)
	fmt.Fprintln(w, "  RPC_USER     =", c.RPCUser)
	fmt.Fprintln(w, "  RPC_PASSWORD =", maskSecret(c.RPCPassword))
	fmt.Fprintln(w, "  BTC_NETWORK  =", c.Network)
	fmt.Fprintln(w, "  PUBKEY_A     =", c.PubKeyA)
	fmt.Fprintln(w, "  PUBKEY_B     =", c.PubKeyB)
	fmt.Fprintln(w, "  UTXO_DB_PATH =", c.UTXODBPath)
	fmt.Fprintln(w, "  EXPORT       =", c.ExportFormat, c.ExportPath)
	if c.SignerWIF != "" {
		fmt.Fprintln(w, "  SIGNER_WIF   =", maskSecret(c.SignerWIF))
	}
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:2] + "****" + secret[len(secret)-2:]
}
