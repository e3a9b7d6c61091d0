// Package worker runs print submissions received by the server.
package worker

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/adcondev/print-bridge/internal/server"
	workererrors "github.com/adcondev/print-bridge/internal/worker/errors"
	"github.com/adcondev/print-bridge/pkg/printers"
)

// Config holds worker configuration
type Config struct {
	DefaultPrinter string        // Used when a job names no printer
	JobTimeout     time.Duration // Upper bound for one submission; zero means none
}

// Printer resolves printer names and submits byte buffers.
type Printer interface {
	FindPrinter(ctx context.Context, name string) (printers.Printer, bool)
	Print(ctx context.Context, printer string, data []byte) error
}

// ClientNotifier sends results back to clients
type ClientNotifier interface {
	NotifyClient(conn *websocket.Conn, response server.Response) error
}

// Worker runs each job on its own goroutine. Jobs are neither queued nor
// serialized; ordering at the printer is up to the OS spooler.
type Worker struct {
	printer       Printer
	notifier      ClientNotifier
	config        Config
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	mu            sync.Mutex
	isRunning     bool
	inFlight      int
	jobsProcessed int64
	jobsFailed    int64
	lastJobTime   time.Time
}

// NewWorker creates a new print worker
func NewWorker(p Printer, notifier ClientNotifier, config Config) *Worker {
	return &Worker{
		printer:  p,
		notifier: notifier,
		config:   config,
	}
}

// Start makes the worker accept jobs
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.isRunning = true

	log.Println("[WORKER] ✅ Print worker started and ready")
}

// Stop rejects new jobs and waits for running ones to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.wg.Wait()
	w.cancel()

	stats := w.Stats()
	log.Printf("[WORKER] 🛑 Print worker stopped (processed: %d, failed: %d)", stats.JobsProcessed, stats.JobsFailed)
}

// Dispatch starts a job in the background
func (w *Worker) Dispatch(job *server.PrintJob) error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return server.ErrDispatcherStopped
	}
	w.inFlight++
	w.wg.Add(1)
	ctx := w.ctx
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.processJob(ctx, job)
	}()
	return nil
}

// InFlight returns the number of jobs waiting on the spooler
func (w *Worker) InFlight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// processJob handles a single print job
func (w *Worker) processJob(ctx context.Context, job *server.PrintJob) {
	startTime := time.Now()
	log.Printf("[WORKER] 🔄 Processing job: %s", job.ID)

	err := w.executePrint(ctx, job)
	duration := time.Since(startTime)

	w.mu.Lock()
	w.inFlight--
	w.lastJobTime = time.Now()
	if err != nil {
		w.jobsFailed++
	} else {
		w.jobsProcessed++
	}
	w.mu.Unlock()

	var response server.Response
	if err != nil {
		log.Printf("[WORKER] ❌ Job %s FAILED after %v: %v", job.ID, duration, err)
		response = server.Response{
			Tipo:    "result",
			ID:      job.ID,
			Status:  "error",
			Mensaje: workererrors.ExtractUserFriendlyError(err),
		}
	} else {
		log.Printf("[WORKER] ✅ Job %s completed in %v", job.ID, duration)
		response = server.Response{
			Tipo:    "result",
			ID:      job.ID,
			Status:  "success",
			Mensaje: fmt.Sprintf("Accepted by spooler in %v", duration.Round(time.Millisecond)),
		}
	}

	// Notify asynchronously so a slow client never delays the job accounting.
	if job.ClientConn != nil && w.notifier != nil {
		go func() {
			if err := w.notifier.NotifyClient(job.ClientConn, response); err != nil {
				log.Printf("[WORKER] ⚠️ Failed to notify client for job %s: %v", job.ID, err)
			}
		}()
	}
}

// executePrint hands the job to the spooler
func (w *Worker) executePrint(ctx context.Context, job *server.PrintJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w in job %s: %v", workererrors.ErrPanic, job.ID, r)
			log.Printf("[WORKER] 💥 Panic in job %s: %v\nStack: %s", job.ID, r, debug.Stack())
		}
	}()

	printerName := job.Printer
	if printerName == "" {
		printerName = w.config.DefaultPrinter
	}
	if printerName == "" {
		return fmt.Errorf("job %s: %w", job.ID, printers.ErrNoPrinter)
	}

	if w.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.config.JobTimeout)
		defer cancel()
	}

	// A display label resolves to its system name; unknown names go to the
	// spooler as given and fail there.
	if p, ok := w.printer.FindPrinter(ctx, printerName); ok {
		printerName = p.SystemName
	}

	log.Printf("[WORKER] 🖨️ Job %s -> Printer: %s (%d bytes)", job.ID, printerName, len(job.Data))
	return w.printer.Print(ctx, printerName, job.Data)
}

// Stats returns current worker statistics
func (w *Worker) Stats() Statistics {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Statistics{
		IsRunning:     w.isRunning,
		InFlight:      w.inFlight,
		JobsProcessed: w.jobsProcessed,
		JobsFailed:    w.jobsFailed,
		LastJobTime:   w.lastJobTime,
	}
}

// Statistics holds worker runtime statistics
type Statistics struct {
	IsRunning     bool      `json:"is_running"`
	InFlight      int       `json:"in_flight"`
	JobsProcessed int64     `json:"jobs_processed"`
	JobsFailed    int64     `json:"jobs_failed"`
	LastJobTime   time.Time `json:"last_job_time,omitempty"`
}
