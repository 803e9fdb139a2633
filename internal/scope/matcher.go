package scope

import (
	"strings"

	"github.com/sloppy/tychostore/internal/evm"
)

// Rule is one parsed tracked-contract entry. Entries prefixed with "!"
// exclude the address even when an include rule matches it.
type Rule struct {
	Definition string
	Type       string // "include" or "exclude"
	addr       evm.Address
}

type Matcher struct {
	includes map[evm.Address]struct{}
	excludes map[evm.Address]struct{}
	rules    []Rule
	skipped  []string
}

func NewMatcher(definitions []string) *Matcher {
	m := &Matcher{
		includes: make(map[evm.Address]struct{}),
		excludes: make(map[evm.Address]struct{}),
	}
	for _, def := range definitions {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}
		rule := Rule{Definition: def, Type: "include"}
		raw := def
		if strings.HasPrefix(raw, "!") {
			rule.Type = "exclude"
			raw = strings.TrimSpace(raw[1:])
		}

		addr, err := evm.ParseAddress(raw)
		if err != nil {
			m.skipped = append(m.skipped, def)
			continue
		}
		rule.addr = addr
		m.rules = append(m.rules, rule)
		if rule.Type == "exclude" {
			m.excludes[addr] = struct{}{}
		} else {
			m.includes[addr] = struct{}{}
		}
	}
	return m
}

// Rules returns the entries that parsed.
func (m *Matcher) Rules() []Rule {
	return m.rules
}

// Skipped returns the entries that could not be parsed as addresses.
func (m *Matcher) Skipped() []string {
	return m.skipped
}

func (m *Matcher) InScope(addr evm.Address) bool {
	if _, ok := m.excludes[addr]; ok {
		return false
	}
	if len(m.includes) == 0 {
		// No includes = everything not excluded is tracked
		return true
	}
	_, ok := m.includes[addr]
	return ok
}
