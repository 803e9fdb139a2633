// Package evm holds the chain-level domain types stored by tycho-store.
package evm

import (
	"fmt"
	"strings"
)

// Chain identifies the network a block, contract or component belongs to.
type Chain string

const (
	Ethereum Chain = "ethereum"
	Starknet Chain = "starknet"
	ZkSync   Chain = "zksync"
	Arbitrum Chain = "arbitrum"
)

var knownChains = []Chain{Ethereum, Starknet, ZkSync, Arbitrum}

// ParseChain accepts a chain name in any case.
func ParseChain(raw string) (Chain, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, c := range knownChains {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown chain %q", raw)
}

func (c Chain) String() string {
	return string(c)
}

// MarshalText implements encoding.TextMarshaler.
func (c Chain) MarshalText() ([]byte, error) {
	return []byte(c), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Chain) UnmarshalText(text []byte) error {
	parsed, err := ParseChain(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
