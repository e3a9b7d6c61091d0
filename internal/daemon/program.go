package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/judwhite/go-svc"

	"github.com/adcondev/print-bridge/internal/auth"
	"github.com/adcondev/print-bridge/internal/config"
	"github.com/adcondev/print-bridge/internal/printer"
	"github.com/adcondev/print-bridge/internal/server"
	"github.com/adcondev/print-bridge/internal/worker"
	"github.com/adcondev/print-bridge/pkg/printers"
	"github.com/adcondev/print-bridge/pkg/process"
)

// GetEnvConfig returns the current environment configuration
func GetEnvConfig() config.Environment {
	return config.GetEnvironment(config.BuildEnvironment)
}

// Program implements svc.Service
type Program struct {
	// Console mirrors the log to stderr.
	Console bool

	wg               sync.WaitGroup
	ctx              context.Context
	cancel           context.CancelFunc
	httpServer       *http.Server
	wsServer         *server.Server
	printWorker      *worker.Worker
	authMgr          *auth.Manager
	startTime        time.Time
	printerDiscovery *PrinterDiscovery
}

// Init initializes the service
func (p *Program) Init(_ svc.Environment) error {
	envConfig := GetEnvConfig()

	if err := initLogging(envConfig, p.Console); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║   🖨️  PRINT BRIDGE - Printer discovery & submission         ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")
	log.Printf("[INIT] 🚀 Starting service - Environment: %s", envConfig.Name)
	log.Printf("[INIT] 📅 Build: %s %s", config.BuildDate, config.BuildTime)

	return nil
}

// NewSpooler builds the platform spooler for an environment.
func NewSpooler(cfg config.Environment) *printers.Spooler {
	runner := process.NewExecRunner(cfg.CommandTimeout)
	return printers.NewSpooler(printers.NewBackend(runtime.GOOS, runner, printers.Config{ListFormat: cfg.ListFormat}))
}

// Start starts the service
func (p *Program) Start() error {
	p.startTime = time.Now()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	cfg := GetEnvConfig()

	p.authMgr = auth.NewManager(p.ctx)

	spooler := NewSpooler(cfg)
	p.printerDiscovery = NewPrinterDiscovery(spooler)
	p.printerDiscovery.LogStartupDiagnostics(p.ctx)

	p.wsServer = server.NewServer(server.Config{
		AllowedOrigins:  cfg.AllowedOrigins,
		JobsPerMinute:   cfg.JobsPerMinute,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
	}, p.printerDiscovery, p.authMgr)

	p.printWorker = worker.NewWorker(spooler, p.wsServer, worker.Config{
		DefaultPrinter: cfg.DefaultPrinter,
		JobTimeout:     cfg.CommandTimeout,
	})
	p.wsServer.SetDispatcher(p.printWorker)
	p.printWorker.Start()

	p.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      p.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		log.Println("┌─────────────────────────────────────────────────────────────┐")
		log.Printf("│ 🖨️  PRINT BRIDGE READY - Environment: %-22s│", cfg.Name)
		log.Printf("│ 🔌 WebSocket: ws://%s/ws", cfg.ListenAddr)
		log.Printf("│ 📋 Printers:  http://%s/printers", cfg.ListenAddr)
		log.Printf("│ 💚 Health:    http://%s/health", cfg.ListenAddr)
		log.Printf("│ 🔐 Auth:      %v", p.authMgr.Enabled())
		log.Println("└─────────────────────────────────────────────────────────────┘")

		if err := p.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[HTTP] ❌ Error starting HTTP server: %v", err)
		}
	}()

	return nil
}

func (p *Program) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", p.wsServer.HandleWebSocket) // token is checked per message
	mux.HandleFunc("/health", p.handleHealth)         // public for monitoring tools
	mux.HandleFunc("/auth/token", p.authMgr.HandleToken)
	mux.HandleFunc("/printers", p.authMgr.RequireToken(p.handlePrinters))
	return mux
}

func (p *Program) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := p.printWorker.Stats()

	response := HealthResponse{
		Status: "ok",
		Worker: WorkerStatus{
			Running:       stats.IsRunning,
			InFlight:      stats.InFlight,
			JobsProcessed: stats.JobsProcessed,
			JobsFailed:    stats.JobsFailed,
		},
		Printers: p.printerDiscovery.GetSummary(r.Context()),
		Build: BuildInfo{
			Env:  config.BuildEnvironment,
			Date: config.BuildDate,
			Time: config.BuildTime,
		},
		Clients:  p.wsServer.ClientCount(),
		LogBytes: GetLogFileSize(),
		Uptime:   int(time.Since(p.startTime).Seconds()),
	}

	if response.Printers.Status == "error" || !stats.IsRunning {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_ = json.NewEncoder(w).Encode(response)
}

func (p *Program) handlePrinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	d := p.printerDiscovery.GetPrinters(r.Context())
	response := PrintersResponse{
		Status:   "ok",
		Printers: printer.ToDTOs(d.Printers),
		Skipped:  len(d.Skipped),
	}
	if d.Failed() {
		response.Status = "error"
		response.Error = d.Err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// Stop stops the service gracefully
func (p *Program) Stop() error {
	log.Println("[STOP] 🛑 Service shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if p.httpServer != nil {
		if err := p.httpServer.Shutdown(ctx); err != nil {
			log.Printf("[STOP] ⚠️ HTTP shutdown error: %v", err)
		}
	}

	if p.wsServer != nil {
		p.wsServer.Shutdown()
	}

	// Waits for jobs already handed to the spooler.
	if p.printWorker != nil {
		p.printWorker.Stop()
	}

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	log.Printf("[STOP] ✅ Service stopped (uptime: %v)", time.Since(p.startTime).Round(time.Second))
	return nil
}

func initLogging(envConfig config.Environment, console bool) error {
	logPath := envConfig.LogPath(dataDir())
	if err := os.MkdirAll(filepath.Dir(logPath), 0750); err != nil {
		return err
	}

	opts := LogOptions{
		Verbose:   envConfig.Verbose,
		Echo:      console,
		MaxBytes:  envConfig.LogMaxBytes,
		KeepLines: envConfig.LogKeepLines,
	}
	if err := InitLogger(logPath, opts); err != nil {
		return err
	}

	log.Printf("[INIT] 📁 Log file: %s", logPath)
	return nil
}

// dataDir is %PROGRAMDATA% on Windows and the user cache dir elsewhere.
func dataDir() string {
	if dir := os.Getenv("PROGRAMDATA"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return os.TempDir()
}
