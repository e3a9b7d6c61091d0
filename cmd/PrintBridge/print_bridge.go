// Package main is the entry point of Print Bridge.
// Print Bridge lists the printers installed on the host and submits jobs to
// them, either from the command line or through a WebSocket service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/judwhite/go-svc"

	"github.com/adcondev/print-bridge/internal/daemon"
	"github.com/adcondev/print-bridge/pkg/printers"
)

func main() {
	consoleMode := flag.Bool("console", false, "Run in console mode (not as service)")
	list := flag.Bool("list", false, "List installed printers and exit")
	printerName := flag.String("printer", "", "Printer system name for -file or -stdin")
	file := flag.String("file", "", "Submit this file to -printer and exit")
	stdin := flag.Bool("stdin", false, "Submit standard input to -printer and exit")
	flag.Parse()

	switch {
	case *list:
		os.Exit(runList(os.Stdout))
	case *file != "" || *stdin:
		os.Exit(runPrint(*printerName, *file, *stdin))
	}

	prg := &daemon.Program{}

	if *consoleMode || isInteractive() {
		prg.Console = true
		runConsole(prg)
	} else {
		if err := svc.Run(prg, syscall.SIGINT, syscall.SIGTERM); err != nil {
			log.Fatal(err)
		}
	}
}

func runList(out io.Writer) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	spooler := daemon.NewSpooler(daemon.GetEnvConfig())
	d := spooler.Discover(ctx)
	if d.Failed() {
		fmt.Fprintf(os.Stderr, "error: %v\n", d.Err)
		return 1
	}

	renderPrinters(out, d)
	return 0
}

func renderPrinters(out io.Writer, d printers.Discovery) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"#", "Name", "System name", "Driver"})
	for i, p := range d.Printers {
		t.AppendRow(table.Row{i + 1, p.Name, p.SystemName, p.DriverName})
	}
	t.AppendFooter(table.Row{"", "", "Skipped", len(d.Skipped)})
	t.Render()
}

func runPrint(printerName, file string, fromStdin bool) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	var in io.Reader
	if fromStdin {
		in = os.Stdin
	}

	spooler := daemon.NewSpooler(daemon.GetEnvConfig())
	target, err := submit(ctx, spooler, printerName, file, in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Printf("sent to %s\n", target)
	return 0
}

// submit resolves printerName to a system name and sends either in (when
// non-nil) or the file at path. Unknown names are passed to the spooler as given.
func submit(ctx context.Context, spooler *printers.Spooler, printerName, path string, in io.Reader) (string, error) {
	target := printerName
	if p, ok := spooler.FindPrinter(ctx, printerName); ok {
		target = p.SystemName
	}

	if in == nil {
		return target, spooler.PrintFile(ctx, target, path)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return target, fmt.Errorf("reading input: %w", err)
	}
	return target, spooler.Print(ctx, target, data)
}

// runConsole runs the program in console mode
func runConsole(prg *daemon.Program) {
	if err := prg.Init(nil); err != nil {
		log.Fatalf("Init failed: %v", err)
	}

	if err := prg.Start(); err != nil {
		log.Fatalf("Start failed: %v", err)
	}

	log.Println("═══════════════════════════════════════════════════════")
	log.Println("  🖨️  PRINT BRIDGE - Console mode")
	log.Println("  Press Ctrl+C to stop...")
	log.Println("═══════════════════════════════════════════════════════")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")
	if err := prg.Stop(); err != nil {
		log.Printf("Stop failed: %v", err)
	}
}

// isInteractive checks if running from a terminal (not as service)
func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
