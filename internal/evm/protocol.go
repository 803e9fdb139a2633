package evm

import (
	"fmt"
	"strings"
)

// ERC20Token describes a token contract. Gas holds per-operation gas costs;
// a nil entry means the cost is unknown.
type ERC20Token struct {
	Address  Address
	Symbol   string
	Decimals uint32
	Tax      uint64
	Gas      []*uint64
	Chain    Chain
}

// FinancialType classifies what a protocol does.
type FinancialType string

const (
	FinancialSwap     FinancialType = "swap"
	FinancialPsm      FinancialType = "psm"
	FinancialDebt     FinancialType = "debt"
	FinancialLeverage FinancialType = "leverage"
)

// ImplementationType tells whether a protocol is simulated natively or in a VM.
type ImplementationType string

const (
	ImplementationCustom ImplementationType = "custom"
	ImplementationVM     ImplementationType = "vm"
)

// ParseFinancialType validates a financial type name.
func ParseFinancialType(raw string) (FinancialType, error) {
	switch t := FinancialType(strings.ToLower(strings.TrimSpace(raw))); t {
	case FinancialSwap, FinancialPsm, FinancialDebt, FinancialLeverage:
		return t, nil
	default:
		return "", fmt.Errorf("unknown financial type %q", raw)
	}
}

// ParseImplementationType validates an implementation type name.
func ParseImplementationType(raw string) (ImplementationType, error) {
	switch t := ImplementationType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ImplementationCustom, ImplementationVM:
		return t, nil
	default:
		return "", fmt.Errorf("unknown implementation type %q", raw)
	}
}

// ProtocolType is a family of components sharing an attribute schema.
type ProtocolType struct {
	Name            string
	FinancialType   FinancialType
	AttributeSchema map[string]any
	Implementation  ImplementationType
}

// ProtocolSystem names the indexer extracting a protocol, e.g. "ambient".
type ProtocolSystem string

// ProtocolComponent is a single pool or market of a protocol.
type ProtocolComponent struct {
	ID               string
	ProtocolSystem   ProtocolSystem
	ProtocolTypeID   string
	Chain            Chain
	Tokens           []Address
	ContractIDs      []Address
	StaticAttributes map[string]Bytes
	Change           ChangeType
}

// ProtocolState is the dynamic attribute set of a component after a transaction.
type ProtocolState struct {
	ComponentID string
	Attributes  map[string]Bytes
	ModifyTx    Hash
}
