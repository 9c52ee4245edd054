package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"waygate.ai/internal/persistence/destdb"
	"waygate.ai/internal/persistence/travellog"
	"waygate.ai/internal/sim/destinations"
	"waygate.ai/internal/sim/scenehost"
	"waygate.ai/internal/sim/travel"
	"waygate.ai/internal/sim/tuning"
	"waygate.ai/internal/sim/worldgraph"
	"waygate.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		destsPath  = flag.String("destinations", "", "path to destinations.json (default: <configs>/destinations.json)")
		disableDB  = flag.Bool("disable_db", false, "keep visited state in memory only")
		silver     = flag.Int64("silver", 500, "player starting currency")
		loadMs     = flag.Int("load_ms", 250, "simulated scene load duration")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[waygate] ", log.LstdFlags|log.Lmicroseconds)

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

	dp := strings.TrimSpace(*destsPath)
	if dp == "" {
		dp = filepath.Join(*configDir, "destinations.json")
	}
	seed, err := destinations.LoadSeed(dp)
	if err != nil {
		logger.Fatalf("load destinations: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)
	var store destinations.Store
	if *disableDB {
		store = destdb.NewMemoryStore()
	} else {
		db, err := destdb.Open(filepath.Join(*dataDir, "destinations.db"))
		if err != nil {
			logger.Fatalf("open destdb: %v", err)
		}
		defer db.Close()
		store = db
	}
	reg, err := destinations.NewRegistry(seed, store, logger)
	if err != nil {
		logger.Fatalf("registry: %v", err)
	}

	events := travellog.NewWriter(filepath.Join(*dataDir, "events"), "travel")
	defer events.Close()

	graph, host := buildWorld(reg.List(), tune, *silver, time.Duration(*loadMs)*time.Millisecond, logger)

	resolver := travel.NewResolver(graph, travel.ResolveConfig{
		NamePrefixes:     tune.Resolve.PlayerNamePrefixes,
		Keyword:          tune.Resolve.PlayerKeyword,
		Tag:              tune.Resolve.PlayerTag,
		PlayerComponents: tune.Resolve.PlayerComponents,
	}, events)
	ledger := travel.NewLedger(travel.LedgerConfig{
		CurrencyID:       tune.CurrencyID,
		HolderComponents: tune.Resolve.HolderComponents,
	}, events, logger)
	orch := travel.NewOrchestrator(travel.Config{
		DefaultPrice:          tune.DefaultPrice,
		StagedTransition:      tune.StagedTransition,
		StagingSceneID:        tune.StagingSceneID,
		LoadTimeout:           tune.LoadTimeout(),
		LoadPoll:              tune.LoadPoll(),
		RefundOnFailedArrival: tune.RefundOnFailedArrival,
	}, resolver, ledger, travel.NewGroundProbe(graph), host, reg, events, logger)

	gateway := ws.NewServer(orch, reg, tune.CurrencyID, tune.DefaultPrice, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", gateway.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("listening on %s (%d destinations, staged=%v)", *addr, len(seed), tune.StagedTransition)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}

// buildWorld boots the hub scene, a persistent player rig, the low-memory
// staging scene and one scene per destination that names one. dests is the
// merged registry view, so a record whose coordinates came from a persisted
// override still gets its scene. Scene content is just enough ground for
// the probe to land on.
func buildWorld(dests []destinations.Destination, tune tuning.Tuning, silver int64, loadDur time.Duration, logger *log.Logger) (*worldgraph.Graph, *scenehost.Host) {
	graph := worldgraph.NewGraph("hub")

	player := worldgraph.NewNode("Player")
	player.Tag = tune.Resolve.PlayerTag
	player.SetComponent("PlayerMovement", struct{}{})
	wallet := worldgraph.NewWallet()
	wallet.SetCurrencyAmount(tune.CurrencyID, silver)
	player.SetComponent("Inventory", wallet)
	graph.AddRoot(player)

	camera := worldgraph.NewNode("MainCamera")
	player.AddChild(camera)
	graph.SetCamera(camera)

	graph.AddCollider(worldgraph.Collider{MinX: -128, MaxX: 128, MinZ: -128, MaxZ: 128, TopY: 0})

	host := scenehost.New(graph, logger)
	host.KeepAcrossLoads(player)
	host.KeepCamera(camera)
	host.Register(scenehost.SceneDef{ID: tune.StagingSceneID, Duration: loadDur / 4})
	for _, d := range dests {
		if d.SceneID == "" {
			continue
		}
		def := scenehost.SceneDef{ID: d.SceneID, Duration: loadDur}
		if d.Pos != nil {
			pos := *d.Pos
			def.Build = func(g *worldgraph.Graph) {
				g.AddCollider(worldgraph.Collider{
					MinX: pos.X - 64, MaxX: pos.X + 64,
					MinZ: pos.Z - 64, MaxZ: pos.Z + 64,
					TopY: pos.Y - 0.5,
				})
			}
		}
		host.Register(def)
	}
	return graph, host
}
