package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelverse.gg/internal/chain"
	"voxelverse.gg/internal/persistence/indexdb"
	persistlog "voxelverse.gg/internal/persistence/log"
	"voxelverse.gg/internal/sim/genesis"
	"voxelverse.gg/internal/sim/world"
	"voxelverse.gg/internal/transport/httpapi"
	"voxelverse.gg/internal/transport/ws"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		worldID     = flag.String("world", "world_1", "world id")
		genesisPath = flag.String("genesis", "", "path to genesis.yaml (empty: built-in defaults)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite audit/parcel index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	gen := genesis.Defaults()
	if p := strings.TrimSpace(*genesisPath); p != "" {
		var err error
		gen, err = genesis.Load(p)
		if err != nil {
			logger.Fatalf("load genesis: %v", err)
		}
	}

	w := world.New(world.WorldConfig{ID: *worldID}, logger)
	w.Seed(seedSpecs(gen))

	// Optional ownership oracle. The noop stand-in keeps the gateway free of
	// "is the oracle configured" branches.
	rpcURL := strings.TrimSpace(os.Getenv("VV_ETH_RPC_URL"))
	contract := strings.TrimSpace(os.Getenv("VV_LAND_CONTRACT"))
	if rpcURL != "" && contract != "" {
		w.SetOracle(chain.NewRPC(rpcURL, contract, logger))
		logger.Printf("ownership oracle enabled contract=%s", contract)
	} else {
		logger.Printf("no ownership oracle configured; running on local state only")
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	auditLog := persistlog.NewAuditLog(worldDir)
	defer auditLog.Close()

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		var err error
		idx, err = indexdb.Open(filepath.Join(worldDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
	}
	var auditSink world.AuditLogger = auditLog
	if idx != nil {
		auditSink = multiAuditLogger{a: auditLog, b: idx}
	}
	w.SetAuditLogger(auditSink)

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world loop: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		m := w.Metrics()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP voxelverse_sessions Current number of connected sessions.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_sessions gauge\n")
		fmt.Fprintf(rw, "voxelverse_sessions{world=%q} %d\n", *worldID, m.Sessions)

		fmt.Fprintf(rw, "# HELP voxelverse_parcels Current number of parcels.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_parcels gauge\n")
		fmt.Fprintf(rw, "voxelverse_parcels{world=%q} %d\n", *worldID, m.Parcels)

		fmt.Fprintf(rw, "# HELP voxelverse_voxels Current number of placed voxel blocks.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_voxels gauge\n")
		fmt.Fprintf(rw, "voxelverse_voxels{world=%q} %d\n", *worldID, m.Voxels)

		fmt.Fprintf(rw, "# HELP voxelverse_mutations_total Committed world mutations.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_mutations_total counter\n")
		fmt.Fprintf(rw, "voxelverse_mutations_total{world=%q} %d\n", *worldID, m.Mutations)

		fmt.Fprintf(rw, "# HELP voxelverse_build_denials_total Build requests denied by permissions.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_build_denials_total counter\n")
		fmt.Fprintf(rw, "voxelverse_build_denials_total{world=%q} %d\n", *worldID, m.Denials)

		fmt.Fprintf(rw, "# HELP voxelverse_dropped_events_total Events dropped on saturated client queues.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_dropped_events_total counter\n")
		fmt.Fprintf(rw, "voxelverse_dropped_events_total{world=%q} %d\n", *worldID, m.Dropped)

		fmt.Fprintf(rw, "# HELP voxelverse_inbox_depth Serializer inbox backlog depth.\n")
		fmt.Fprintf(rw, "# TYPE voxelverse_inbox_depth gauge\n")
		fmt.Fprintf(rw, "voxelverse_inbox_depth{world=%q} %d\n", *worldID, m.InboxLen)

		if idx != nil {
			fmt.Fprintf(rw, "# HELP voxelverse_index_dropped_total Audit rows dropped by the sqlite index.\n")
			fmt.Fprintf(rw, "# TYPE voxelverse_index_dropped_total counter\n")
			fmt.Fprintf(rw, "voxelverse_index_dropped_total{world=%q} %d\n", *worldID, idx.Dropped())
		}
	})

	if envBool("VV_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	httpapi.NewServer(w, logger).Register(mux)
	mux.HandleFunc("/v1/ws", ws.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("world=%s parcels=%d listening on %s", *worldID, len(gen.Parcels), *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func seedSpecs(gen genesis.Config) []world.ParcelSpec {
	specs := make([]world.ParcelSpec, 0, len(gen.Parcels))
	for _, p := range gen.Parcels {
		specs = append(specs, world.ParcelSpec{
			Name:    p.Name,
			X:       p.X,
			Y:       p.Y,
			Z:       p.Z,
			Width:   p.Width,
			Height:  p.Height,
			Depth:   p.Depth,
			Owner:   p.Owner,
			Price:   p.Price,
			ForSale: p.ForSale,
		})
	}
	return specs
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

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

type multiAuditLogger struct {
	a world.AuditLogger
	b world.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry world.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
