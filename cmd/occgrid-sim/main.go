// Command occgrid-sim replays a scenario through the occupancy grid sensor
// and streams, records, or renders the resulting grids.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/sensorsim/internal/config"
	"github.com/banshee-data/sensorsim/internal/gridstream"
	"github.com/banshee-data/sensorsim/internal/monitor"
	"github.com/banshee-data/sensorsim/internal/posenoise"
	"github.com/banshee-data/sensorsim/internal/sensorsim"
	"github.com/banshee-data/sensorsim/internal/storage/sqlite"
	"github.com/banshee-data/sensorsim/internal/version"
	"gonum.org/v1/plot/vg"
)

var (
	configPath   = flag.String("config", config.DefaultSensorConfigPath, "Sensor configuration file (JSON)")
	scenarioPath = flag.String("scenario", "config/scenarios/crossing.json", "Scenario file (JSON)")
	maxGrids     = flag.Int("ticks", 0, "Stop after this many published grids (0 runs for the scenario duration)")
	grpcAddr     = flag.String("grpc-addr", "", "Stream grids over gRPC on this address (empty disables)")
	dbPath       = flag.String("db", "", "Record grids to this SQLite file (empty disables)")
	listen       = flag.String("http", "", "Serve /debug/ pages on this address (empty disables)")
	pngPath      = flag.String("png", "", "Write the last grid to this PNG file")
	noNoise      = flag.Bool("no-noise", false, "Disable ego pose noise regardless of config")
	showVersion  = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println(version.String())
		return
	}

	sensorCfg, err := config.LoadSensorConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load sensor config: %v", err)
	}
	scenario, err := config.LoadScenario(*scenarioPath)
	if err != nil {
		log.Fatalf("failed to load scenario: %v", err)
	}
	world, err := sensorsim.NewScenarioWorld(scenario)
	if err != nil {
		log.Fatalf("failed to build world: %v", err)
	}
	sensor := sensorsim.NewOccupancyGridSensor(sensorCfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sinks []sensorsim.Sink
		rec   *sqlite.Recorder
	)

	if *dbPath != "" {
		rec, err = sqlite.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open recorder: %v", err)
		}
		defer rec.Close()
		runID, err := rec.StartRun(ctx, sensor.ID(), time.Now())
		if err != nil {
			log.Fatalf("failed to start run: %v", err)
		}
		log.Printf("recording run %s to %s", runID, *dbPath)
		sinks = append(sinks, rec.Sink(runID))
	}

	if *grpcAddr != "" {
		pubCfg := gridstream.DefaultConfig()
		pubCfg.ListenAddr = *grpcAddr
		pubCfg.SensorID = sensor.ID()
		pub := gridstream.NewPublisher(pubCfg)
		if err := pub.Start(); err != nil {
			log.Fatalf("failed to start grid stream: %v", err)
		}
		defer pub.Stop()
		log.Printf("streaming %s on %s", pubCfg.SensorID, pub.Addr())
		sinks = append(sinks, pub)
	}

	var noise *posenoise.Source
	if sensorCfg.GetPoseNoiseEnabled() && !*noNoise {
		noise = posenoise.New(sensorCfg.GetPoseNoise())
	}

	duration := scenario.GetDuration()
	if *maxGrids > 0 {
		duration = 0
	}
	sim, err := sensorsim.New(sensorsim.Config{
		World:    world,
		Sensor:   sensor,
		Noise:    noise,
		Sinks:    sinks,
		Duration: duration,
		MaxGrids: *maxGrids,
	})
	if err != nil {
		log.Fatalf("failed to create simulator: %v", err)
	}

	var wg sync.WaitGroup
	if *listen != "" {
		mux := http.NewServeMux()
		var (
			db    *sql.DB
			store monitor.RunStore
		)
		if rec != nil {
			db, store = rec.DB(), rec
		}
		if err := monitor.AttachDebugRoutes(mux, sim, db); err != nil {
			log.Fatalf("failed to attach debug routes: %v", err)
		}
		monitor.AttachAPIRoutes(mux, sim, store)
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, *listen, mux)
		}()
	}

	log.Printf("%s: scenario %q, %s every %v", version.String(), scenario.GetName(), sensor.ID(), sensor.Period())
	if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("simulation stopped: %v", err)
	}
	st := sim.Stats()
	log.Printf("simulation finished: ticks=%d published=%d sink_errors=%d", st.Ticks, st.Published, st.SinkErrors)

	if *pngPath != "" {
		if err := writePNG(*pngPath, sim); err != nil {
			log.Printf("failed to write %s: %v", *pngPath, err)
		}
	}

	// Keep the debug pages up until interrupted.
	if *listen != "" {
		<-ctx.Done()
	}
	stop()
	wg.Wait()
}

func writePNG(path string, src monitor.Source) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := monitor.RenderPNG(f, src.Latest(), 8*vg.Inch); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{Addr: addr, Handler: h}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("debug pages on http://%s/debug/", addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
}
