package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/sloppy/tychostore/internal/db"
	"github.com/sloppy/tychostore/internal/evm"
	"github.com/sloppy/tychostore/internal/export"
)

func TestSetupLogging_DefaultInfoLevel(t *testing.T) {
	SetupLogging(LogConfig{})
	assert.Equal(t, log.InfoLevel, Logger().GetLevel())
}

func TestSetupLogging_VerboseEnablesDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	SetupLogging(LogConfig{Verbose: true, Writer: &buf})
	assert.Equal(t, log.DebugLevel, Logger().GetLevel())

	Debug("verbose-msg", "slots", 3)
	assert.Contains(t, buf.String(), "verbose-msg")
	assert.Contains(t, buf.String(), "slots=3")
}

func TestSetupLogging_TimestampExplicitlyDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetupLogging(LogConfig{Timestamps: BoolPtr(false), Writer: &buf})
	Info("hello")
	assert.NotRegexp(t, `^\d{1,2}:\d{2}:\d{2}`, strings.TrimSpace(buf.String()))
}

func TestComponentLogger_HasPrefix(t *testing.T) {
	var buf bytes.Buffer
	SetupLogging(LogConfig{Timestamps: BoolPtr(false), Writer: &buf})
	l := ComponentLogger("http")
	assert.Equal(t, "http", l.GetPrefix())
	l.Warn("slow request")
	assert.Contains(t, buf.String(), "http")
	assert.Contains(t, buf.String(), "slow request")
}

func sampleDelta() export.DeltaExport {
	return export.NewDeltaExport(evm.Ethereum,
		db.AtBlockNumber(evm.Ethereum, 1),
		nil,
		db.SlotsDelta{
			evm.MustParseAddress("0x6b175474e89094c44da98b954eedeac495271d0f"): evm.NewSlots([2]uint64{1, 3}, [2]uint64{0, 2}),
		},
	)
}

func TestPrinterDeltaPlain(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Delta(sampleDelta())

	want := "ethereum: block ethereum#1 -> latest\n" +
		"0x6b175474e89094c44da98b954eedeac495271d0f\n" +
		"  0x0 = 0x2\n" +
		"  0x1 = 0x3\n" +
		"1 contracts, 2 slots\n"
	assert.Equal(t, want, buf.String())
}

func TestPrinterDeltaColored(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Delta(sampleDelta())
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestPrinterEmptyDeltaAndMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, true)
	p.Delta(export.NewDeltaExport(evm.Ethereum, nil, nil, nil))
	p.Success("imported %d blocks", 2)
	p.Warning("skipped %d accounts", 1)

	assert.Equal(t, "ethereum: latest -> latest\nno changes\n✓ imported 2 blocks\n! skipped 1 accounts\n", buf.String())
}
