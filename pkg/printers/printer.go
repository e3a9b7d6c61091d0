// Package printers discovers installed printers and submits print jobs through
// the operating system's spooler tools: CUPS (lpstat, lp) on Unix-like systems
// and PowerShell (Get-Printer, Out-Printer) on Windows.
//
// A Spooler wraps the Backend for the current platform:
//
//	sp := printers.New(process.NewExecRunner(30 * time.Second))
//	for _, p := range sp.ListPrinters(ctx) {
//		fmt.Println(p.Name, p.SystemName)
//	}
//	err := sp.Print(ctx, "Printer_A", []byte("hello\n"))
package printers

import "fmt"

// Printer is a printer as reported by the OS spooler.
type Printer struct {
	// Name is a human readable label.
	Name string `json:"name"`
	// SystemName is the identifier the spooler expects on submission,
	// exactly as it was listed.
	SystemName string `json:"system_name"`
	// DriverName is empty when the platform does not report drivers.
	DriverName string `json:"driver_name,omitempty"`
}

// Discovery is the result of one listing query.
type Discovery struct {
	Printers []Printer
	// Skipped holds records that did not match the expected shape.
	Skipped []*RecordError
	// Err is set when the query itself failed; Printers is empty then.
	Err error
}

// Failed reports whether the listing command could not be run or exited
// with a failure, as opposed to running fine and finding no printers.
func (d Discovery) Failed() bool {
	return d.Err != nil
}

// RecordError describes one listing record that was skipped.
type RecordError struct {
	// Index is the zero-based position of the record in the listing.
	Index  int
	Raw    string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
}

// Lookup returns the first printer whose SystemName equals name, else the
// first whose Name does.
func Lookup(list []Printer, name string) (Printer, bool) {
	for _, p := range list {
		if p.SystemName == name {
			return p, true
		}
	}
	for _, p := range list {
		if p.Name == name {
			return p, true
		}
	}
	return Printer{}, false
}
