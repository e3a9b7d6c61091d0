package daemon

import (
	"context"
	"log"

	"github.com/adcondev/print-bridge/internal/printer"
	"github.com/adcondev/print-bridge/pkg/printers"
)

// PrinterDiscovery exposes spooler discovery to the HTTP and WebSocket
// handlers. Every call queries the OS again.
type PrinterDiscovery struct {
	spooler *printers.Spooler
}

// NewPrinterDiscovery creates a new discovery service
func NewPrinterDiscovery(spooler *printers.Spooler) *PrinterDiscovery {
	return &PrinterDiscovery{spooler: spooler}
}

// GetPrinters lists printers as the spooler reports them right now
func (pd *PrinterDiscovery) GetPrinters(ctx context.Context) printers.Discovery {
	return pd.spooler.Discover(ctx)
}

// Summarize condenses a discovery result for health output
func (pd *PrinterDiscovery) Summarize(d printers.Discovery) printer.Summary {
	return printer.Summarize(pd.spooler.Backend().Name(), d)
}

// GetSummary runs discovery and summarizes it
func (pd *PrinterDiscovery) GetSummary(ctx context.Context) printer.Summary {
	return pd.Summarize(pd.GetPrinters(ctx))
}

// LogStartupDiagnostics logs printer info at service start
func (pd *PrinterDiscovery) LogStartupDiagnostics(ctx context.Context) {
	d := pd.GetPrinters(ctx)
	if d.Failed() {
		log.Printf("[PRINTERS] ⚠️ Error enumerating printers: %v", d.Err)
		return
	}

	log.Println("[PRINTERS] ══════════════════════════════════════════════════")
	log.Printf("[PRINTERS] 🖨️ Detected %d installed printer(s) via %s", len(d.Printers), pd.spooler.Backend().Name())
	if len(d.Printers) == 0 {
		log.Println("[PRINTERS] ⚠️ No printers installed!")
	}
	for _, p := range d.Printers {
		if p.DriverName != "" {
			log.Printf("[PRINTERS]    • %s [%s] (%s)", p.Name, p.SystemName, p.DriverName)
		} else {
			log.Printf("[PRINTERS]    • %s [%s]", p.Name, p.SystemName)
		}
	}
	if len(d.Skipped) > 0 {
		log.Printf("[PRINTERS] ⚠️ %d listing record(s) could not be parsed", len(d.Skipped))
	}
	log.Println("[PRINTERS] ══════════════════════════════════════════════════")
}
