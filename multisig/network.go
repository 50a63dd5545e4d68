package multisig

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// Network selects the address version bytes and magic of a Bitcoin network.
// It is passed explicitly to every operation that encodes or decodes an
// address.
type Network struct {
	Name   string
	Params *chaincfg.Params
}

var (
	MainNet       = &Network{Name: "mainnet", Params: &chaincfg.MainNetParams}
	TestNet3      = &Network{Name: "testnet3", Params: &chaincfg.TestNet3Params}
	RegressionNet = &Network{Name: "regtest", Params: &chaincfg.RegressionNetParams}
	SigNet        = &Network{Name: "signet", Params: &chaincfg.SigNetParams}
)

// NetworkByName resolves the names accepted in configuration.
func NetworkByName(name string) (*Network, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mainnet", "main", "bitcoin":
		return MainNet, nil
	case "testnet3", "testnet", "test":
		return TestNet3, nil
	case "regtest", "regression":
		return RegressionNet, nil
	case "signet":
		return SigNet, nil
	}
	return nil, newError(ErrUnsupportedNetwork,
		fmt.Sprintf("unknown network %q", name), nil)
}

func (n *Network) String() string {
	return n.Name
}

func checkNetwork(net *Network) error {
	if net == nil || net.Params == nil {
		return newError(ErrUnsupportedNetwork, "no network parameters given", nil)
	}
	return nil
}
