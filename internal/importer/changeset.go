package importer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sloppy/tychostore/internal/evm"
)

// Internal parsing structs matching the changeset YAML.
type yamlChangeset struct {
	Chain         string             `yaml:"chain"`
	Source        string             `yaml:"source"`
	ProtocolTypes []yamlProtocolType `yaml:"protocol_types"`
	Blocks        []yamlBlock        `yaml:"blocks"`
	Tokens        []yamlToken        `yaml:"tokens"`
}

type yamlProtocolType struct {
	Name            string         `yaml:"name"`
	FinancialType   string         `yaml:"financial_type"`
	Implementation  string         `yaml:"implementation"`
	AttributeSchema map[string]any `yaml:"attribute_schema"`
}

type yamlBlock struct {
	Number       uint64            `yaml:"number"`
	Hash         string            `yaml:"hash"`
	ParentHash   string            `yaml:"parent_hash"`
	Timestamp    string            `yaml:"timestamp"`
	Transactions []yamlTransaction `yaml:"transactions"`
}

type yamlTransaction struct {
	Hash       string          `yaml:"hash"`
	From       string          `yaml:"from"`
	To         string          `yaml:"to"`
	Index      uint64          `yaml:"index"`
	Accounts   []yamlAccount   `yaml:"accounts"`
	Components []yamlComponent `yaml:"components"`
	States     []yamlState     `yaml:"states"`
}

type yamlAccount struct {
	Address string            `yaml:"address"`
	Change  string            `yaml:"change"`
	Balance string            `yaml:"balance"`
	Code    string            `yaml:"code"`
	Slots   map[string]string `yaml:"slots"`
}

type yamlComponent struct {
	ID               string            `yaml:"id"`
	ProtocolSystem   string            `yaml:"protocol_system"`
	ProtocolType     string            `yaml:"protocol_type"`
	Tokens           []string          `yaml:"tokens"`
	Contracts        []string          `yaml:"contracts"`
	StaticAttributes map[string]string `yaml:"static_attributes"`
}

type yamlState struct {
	Component  string            `yaml:"component"`
	Attributes map[string]string `yaml:"attributes"`
}

type yamlToken struct {
	Address  string    `yaml:"address"`
	Symbol   string    `yaml:"symbol"`
	Decimals uint32    `yaml:"decimals"`
	Tax      uint64    `yaml:"tax"`
	Gas      []*uint64 `yaml:"gas"`
}

// Changeset is a parsed batch of chain changes ready to be imported.
type Changeset struct {
	Chain         evm.Chain
	Source        string
	ProtocolTypes []evm.ProtocolType
	Blocks        []BlockChanges
	Tokens        []evm.ERC20Token
}

// BlockChanges groups the transactions of one block.
type BlockChanges struct {
	Block        evm.Block
	Transactions []TxChanges
}

// TxChanges holds everything a single transaction modified.
type TxChanges struct {
	Transaction evm.Transaction
	Accounts    []evm.AccountUpdate
	Components  []ComponentChange
	States      []evm.ProtocolState
}

// ComponentChange is a component creation referring to its protocol type by
// name; the stored type id is resolved at import time.
type ComponentChange struct {
	evm.ProtocolComponent
	ProtocolType string
}

// Counts summarizes the size of a changeset.
func (cs Changeset) Counts() (blocks, txns, accounts int) {
	for _, b := range cs.Blocks {
		blocks++
		for _, t := range b.Transactions {
			txns++
			accounts += len(t.Accounts)
		}
	}
	return blocks, txns, accounts
}

// ParseChangesetFile reads a changeset YAML file from disk.
func ParseChangesetFile(path string) (Changeset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Changeset{}, fmt.Errorf("open changeset: %w", err)
	}
	defer f.Close()
	return ParseChangeset(f)
}

// ParseChangeset decodes and validates a changeset document.
func ParseChangeset(r io.Reader) (Changeset, error) {
	var doc yamlChangeset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Changeset{}, fmt.Errorf("decode changeset: empty document")
		}
		return Changeset{}, fmt.Errorf("decode changeset: %w", err)
	}
	return changesetFromYAML(doc)
}

func changesetFromYAML(doc yamlChangeset) (Changeset, error) {
	chain, err := evm.ParseChain(doc.Chain)
	if err != nil {
		return Changeset{}, err
	}
	cs := Changeset{Chain: chain, Source: strings.TrimSpace(doc.Source)}

	for _, yt := range doc.ProtocolTypes {
		pt, err := protocolTypeFromYAML(yt)
		if err != nil {
			return Changeset{}, err
		}
		cs.ProtocolTypes = append(cs.ProtocolTypes, pt)
	}

	for i, yb := range doc.Blocks {
		b, err := blockFromYAML(chain, yb)
		if err != nil {
			return Changeset{}, fmt.Errorf("block %d: %w", i, err)
		}
		cs.Blocks = append(cs.Blocks, b)
	}

	for _, yt := range doc.Tokens {
		addr, err := evm.ParseAddress(yt.Address)
		if err != nil {
			return Changeset{}, fmt.Errorf("token %s: %w", yt.Symbol, err)
		}
		cs.Tokens = append(cs.Tokens, evm.ERC20Token{
			Address:  addr,
			Symbol:   yt.Symbol,
			Decimals: yt.Decimals,
			Tax:      yt.Tax,
			Gas:      yt.Gas,
			Chain:    chain,
		})
	}
	return cs, nil
}

func protocolTypeFromYAML(yt yamlProtocolType) (evm.ProtocolType, error) {
	name := strings.TrimSpace(yt.Name)
	if name == "" {
		return evm.ProtocolType{}, fmt.Errorf("protocol type without name")
	}
	financial, err := evm.ParseFinancialType(yt.FinancialType)
	if err != nil {
		return evm.ProtocolType{}, fmt.Errorf("protocol type %s: %w", name, err)
	}
	impl, err := evm.ParseImplementationType(yt.Implementation)
	if err != nil {
		return evm.ProtocolType{}, fmt.Errorf("protocol type %s: %w", name, err)
	}
	return evm.ProtocolType{
		Name:            name,
		FinancialType:   financial,
		AttributeSchema: yt.AttributeSchema,
		Implementation:  impl,
	}, nil
}

func blockFromYAML(chain evm.Chain, yb yamlBlock) (BlockChanges, error) {
	hash, err := evm.ParseHash(yb.Hash)
	if err != nil {
		return BlockChanges{}, err
	}
	var parent evm.Hash
	if strings.TrimSpace(yb.ParentHash) != "" {
		if parent, err = evm.ParseHash(yb.ParentHash); err != nil {
			return BlockChanges{}, fmt.Errorf("parent: %w", err)
		}
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(yb.Timestamp))
	if err != nil {
		return BlockChanges{}, fmt.Errorf("timestamp %q: %w", yb.Timestamp, err)
	}

	out := BlockChanges{Block: evm.Block{
		Number:     yb.Number,
		Hash:       hash,
		ParentHash: parent,
		Chain:      chain,
		Timestamp:  ts.UTC(),
	}}
	for _, yt := range yb.Transactions {
		t, err := txFromYAML(chain, hash, yt)
		if err != nil {
			return BlockChanges{}, fmt.Errorf("tx %s: %w", yt.Hash, err)
		}
		out.Transactions = append(out.Transactions, t)
	}
	return out, nil
}

func txFromYAML(chain evm.Chain, block evm.Hash, yt yamlTransaction) (TxChanges, error) {
	hash, err := evm.ParseHash(yt.Hash)
	if err != nil {
		return TxChanges{}, err
	}
	from, err := evm.ParseAddress(yt.From)
	if err != nil {
		return TxChanges{}, fmt.Errorf("from: %w", err)
	}
	t := evm.Transaction{
		Hash:      hash,
		BlockHash: block,
		From:      from,
		Index:     yt.Index,
	}
	if strings.TrimSpace(yt.To) != "" {
		to, err := evm.ParseAddress(yt.To)
		if err != nil {
			return TxChanges{}, fmt.Errorf("to: %w", err)
		}
		t.To = &to
	}

	out := TxChanges{Transaction: t}
	for _, ya := range yt.Accounts {
		u, err := accountFromYAML(chain, ya)
		if err != nil {
			return TxChanges{}, fmt.Errorf("account %s: %w", ya.Address, err)
		}
		out.Accounts = append(out.Accounts, u)
	}
	for _, yc := range yt.Components {
		c, err := componentFromYAML(chain, yc)
		if err != nil {
			return TxChanges{}, fmt.Errorf("component %s: %w", yc.ID, err)
		}
		out.Components = append(out.Components, c)
	}
	for _, ys := range yt.States {
		attrs, err := parseAttributes(ys.Attributes)
		if err != nil {
			return TxChanges{}, fmt.Errorf("state %s: %w", ys.Component, err)
		}
		out.States = append(out.States, evm.ProtocolState{
			ComponentID: ys.Component,
			Attributes:  attrs,
			ModifyTx:    hash,
		})
	}
	return out, nil
}

func accountFromYAML(chain evm.Chain, ya yamlAccount) (evm.AccountUpdate, error) {
	addr, err := evm.ParseAddress(ya.Address)
	if err != nil {
		return evm.AccountUpdate{}, err
	}
	change, err := evm.ParseChangeType(ya.Change)
	if err != nil {
		return evm.AccountUpdate{}, err
	}
	u := evm.AccountUpdate{
		Address: addr,
		Chain:   chain,
		Change:  change,
	}
	if strings.TrimSpace(ya.Balance) != "" {
		bal, err := evm.ParseU256(ya.Balance)
		if err != nil {
			return evm.AccountUpdate{}, fmt.Errorf("balance: %w", err)
		}
		u.Balance = &bal
	}
	if strings.TrimSpace(ya.Code) != "" {
		if u.Code, err = evm.ParseBytes(ya.Code); err != nil {
			return evm.AccountUpdate{}, fmt.Errorf("code: %w", err)
		}
	}
	if len(ya.Slots) > 0 {
		u.Slots = make(evm.Slots, len(ya.Slots))
		for k, v := range ya.Slots {
			key, err := evm.ParseU256(k)
			if err != nil {
				return evm.AccountUpdate{}, fmt.Errorf("slot %s: %w", k, err)
			}
			val, err := evm.ParseU256(v)
			if err != nil {
				return evm.AccountUpdate{}, fmt.Errorf("slot %s value: %w", k, err)
			}
			u.Slots[key] = val
		}
	}
	return u, nil
}

func componentFromYAML(chain evm.Chain, yc yamlComponent) (ComponentChange, error) {
	if strings.TrimSpace(yc.ID) == "" {
		return ComponentChange{}, fmt.Errorf("missing id")
	}
	if strings.TrimSpace(yc.ProtocolType) == "" {
		return ComponentChange{}, fmt.Errorf("missing protocol_type")
	}
	tokens, err := parseAddresses(yc.Tokens)
	if err != nil {
		return ComponentChange{}, fmt.Errorf("tokens: %w", err)
	}
	contracts, err := parseAddresses(yc.Contracts)
	if err != nil {
		return ComponentChange{}, fmt.Errorf("contracts: %w", err)
	}
	attrs, err := parseAttributes(yc.StaticAttributes)
	if err != nil {
		return ComponentChange{}, err
	}
	return ComponentChange{
		ProtocolComponent: evm.ProtocolComponent{
			ID:               yc.ID,
			ProtocolSystem:   evm.ProtocolSystem(yc.ProtocolSystem),
			Chain:            chain,
			Tokens:           tokens,
			ContractIDs:      contracts,
			StaticAttributes: attrs,
			Change:           evm.ChangeCreation,
		},
		ProtocolType: yc.ProtocolType,
	}, nil
}

func parseAddresses(raw []string) ([]evm.Address, error) {
	var out []evm.Address
	for _, s := range raw {
		a, err := evm.ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func parseAttributes(raw map[string]string) (map[string]evm.Bytes, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]evm.Bytes, len(raw))
	for k, v := range raw {
		b, err := evm.ParseBytes(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		out[k] = b
	}
	return out, nil
}
