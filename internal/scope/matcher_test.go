package scope

import (
	"testing"

	"github.com/sloppy/tychostore/internal/evm"
)

const (
	dai  = "0x6B175474E89094C44Da98b954EedeAC495271d0F"
	weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	usdc = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

func TestMatcherInclusionAndExclusion(t *testing.T) {
	m := NewMatcher([]string{dai, weth, "!" + weth})

	tests := []struct {
		addr string
		want bool
	}{
		{dai, true},
		{weth, false}, // exclude overrides include
		{usdc, false}, // not tracked
	}
	for _, tt := range tests {
		if got := m.InScope(evm.MustParseAddress(tt.addr)); got != tt.want {
			t.Fatalf("InScope(%s)=%v want %v", tt.addr, got, tt.want)
		}
	}
}

func TestNoIncludesTracksEverything(t *testing.T) {
	m := NewMatcher(nil)
	if !m.InScope(evm.MustParseAddress(usdc)) {
		t.Fatalf("expected everything in scope without rules")
	}

	m = NewMatcher([]string{"!" + usdc})
	if m.InScope(evm.MustParseAddress(usdc)) {
		t.Fatalf("excluded address reported in scope")
	}
	if !m.InScope(evm.MustParseAddress(dai)) {
		t.Fatalf("expected non-excluded address in scope")
	}
}

func TestInvalidEntriesSkipped(t *testing.T) {
	m := NewMatcher([]string{"not-an-address", "", "0x" + "zz", dai})
	if len(m.Rules()) != 1 {
		t.Fatalf("rules=%d want 1", len(m.Rules()))
	}
	if got := m.Skipped(); len(got) != 2 {
		t.Fatalf("skipped=%v want 2 entries", got)
	}
	if m.InScope(evm.MustParseAddress(weth)) {
		t.Fatalf("weth should be out of scope")
	}
}

func TestShortAddressesArePadded(t *testing.T) {
	m := NewMatcher([]string{"0x01"})
	if !m.InScope(evm.MustParseAddress("0x0000000000000000000000000000000000000001")) {
		t.Fatalf("padded address should match")
	}
}
