package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/sloppy/tychostore/internal/export"
)

// Printer writes human-facing CLI output, colored unless disabled.
type Printer struct {
	w       io.Writer
	address *color.Color
	slot    *color.Color
	value   *color.Color
	ok      *color.Color
	warn    *color.Color
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	p := &Printer{
		w:       w,
		address: color.New(color.FgCyan, color.Bold),
		slot:    color.New(color.FgYellow),
		value:   color.New(color.FgGreen),
		ok:      color.New(color.FgGreen),
		warn:    color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.address, p.slot, p.value, p.ok, p.warn} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

// Delta prints each contract followed by its slot values.
func (p *Printer) Delta(d export.DeltaExport) {
	fmt.Fprintf(p.w, "%s: %s -> %s\n", d.Chain, d.Start, d.Target)
	if len(d.Contracts) == 0 {
		fmt.Fprintln(p.w, "no changes")
		return
	}
	for _, c := range d.Contracts {
		p.address.Fprintln(p.w, c.Address.Hex())
		for _, s := range c.Slots {
			fmt.Fprint(p.w, "  ")
			p.slot.Fprint(p.w, s.Slot)
			fmt.Fprint(p.w, " = ")
			p.value.Fprintln(p.w, s.Value)
		}
	}
	fmt.Fprintf(p.w, "%d contracts, %d slots\n", len(d.Contracts), d.SlotCount())
}

// Success prints a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	p.ok.Fprintf(p.w, "✓ "+format+"\n", args...)
}

// Warning prints a highlighted warning line.
func (p *Printer) Warning(format string, args ...any) {
	p.warn.Fprintf(p.w, "! "+format+"\n", args...)
}
