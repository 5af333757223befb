package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"amoebotsim.ai/internal/persistence/indexdb"
	persistlog "amoebotsim.ai/internal/persistence/log"
	"amoebotsim.ai/internal/persistence/snapshot"
	"amoebotsim.ai/internal/sim/system"
	"amoebotsim.ai/internal/sim/tuning"
	"amoebotsim.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides tuning)")
		simID      = flag.String("sim", "sim_1", "simulation id")
		seed       = flag.Int64("seed", 1337, "seed (used only when starting fresh)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite run index")

		savePath   = flag.String("save", "", "path to save file to serve (replay-only mode)")
		loadLatest = flag.Bool("load_latest_save", false, "serve latest save from data dir if present (when -save is empty)")

		population = flag.String("population", "demo", "initial population (demo|line|pair)")
		particles  = flag.Int("particles", 6, "initial population size")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	if *addr != "" {
		tune.ListenAddr = *addr
	}

	dir := *dataDir
	if dir == "./data" && tune.Log.Dir != "" {
		dir = tune.Log.Dir
	}
	simDir := filepath.Join(dir, "sims", *simID)
	_ = os.MkdirAll(simDir, 0o755)

	// Build the system: either a replay-only save being served, or a fresh
	// live population.
	var sys *system.System
	saveToLoad := strings.TrimSpace(*savePath)
	if saveToLoad == "" && *loadLatest {
		saveToLoad = latestSave(simDir)
	}
	if saveToLoad != "" {
		save, err := snapshot.ReadSave(saveToLoad)
		if err != nil {
			logger.Fatalf("read save: %v", err)
		}
		if save.Header.SimID != *simID {
			logger.Fatalf("save sim id mismatch: flag=%s save=%s", *simID, save.Header.SimID)
		}
		sys, err = system.Load(save)
		if err != nil {
			logger.Fatalf("load save: %v", err)
		}
		logger.Printf("serving save=%s round=%d (replay only)", filepath.Base(saveToLoad), save.Header.Round)
	} else {
		sys, err = system.New(system.Config{ID: *simID, PinsPerEdge: tune.PinsPerEdge, Seed: *seed})
		if err != nil {
			logger.Fatalf("system: %v", err)
		}
		if err := buildPopulation(sys, *population, *particles); err != nil {
			logger.Fatalf("population: %v", err)
		}
		logger.Printf("fresh population=%s particles=%d pins_per_edge=%d", *population, *particles, tune.PinsPerEdge)
	}
	sys.SetWarnf(func(format string, args ...any) { logger.Printf("sim: "+format, args...) })

	ctx, cancel := signalContext()
	defer cancel()

	// Round log + optional sqlite index (neither affects determinism).
	var loggers []system.RoundLogger
	var roundLog *persistlog.RoundLogger
	if tune.Log.RoundLog {
		roundLog = persistlog.NewRoundLogger(simDir)
		defer roundLog.Close()
		loggers = append(loggers, roundLog)
	}
	var idx *indexdb.SQLiteIndex
	if tune.Log.IndexDB && !*disableDB {
		dbDir := tune.Log.IndexDBDir
		if dbDir == "" {
			dbDir = simDir
		}
		idx, err = indexdb.OpenSQLite(filepath.Join(dbDir, "index.db"), sys.Config())
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		loggers = append(loggers, idx)
		logger.Printf("run index: %s", idx.RunID())
	}

	h := newHost(sys, tune, logger, loggers)

	// Save writer.
	saveCh := make(chan snapshot.SaveV1, 2)
	h.saveSink = saveCh
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case save := <-saveCh:
				path := filepath.Join(simDir, "saves", fmt.Sprintf("%d.sav.zst", save.Header.Round))
				if err := snapshot.WriteSave(path, save); err != nil {
					logger.Printf("save write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, save.Header.Round, "", len(save.Particles))
				}
				logger.Printf("saved round=%d particles=%d", save.Header.Round, len(save.Particles))
			}
		}
	}()

	go h.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(h, logger).Handler())

	srv := &http.Server{
		Addr:              tune.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", tune.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSave(simDir string) string {
	dir := filepath.Join(simDir, "saves")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestRound uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".sav.zst") {
			continue
		}
		round, err := strconv.ParseUint(strings.TrimSuffix(name, ".sav.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || round > bestRound {
			bestRound = round
			best = filepath.Join(dir, name)
		}
	}
	return best
}
