// Command depthgrid turns depth point clouds streamed from the sensor bridge
// into an occupancy grid and emits sweep and balance cues.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/depthgrid/internal/config"
	"github.com/banshee-data/depthgrid/internal/depth/cue"
	"github.com/banshee-data/depthgrid/internal/depth/monitor"
	"github.com/banshee-data/depthgrid/internal/depth/network"
	"github.com/banshee-data/depthgrid/internal/depth/pipeline"
	"github.com/banshee-data/depthgrid/internal/depth/storage/sqlite"
	"github.com/banshee-data/depthgrid/internal/monitoring"
	"github.com/banshee-data/depthgrid/internal/version"
)

var (
	configFile     = flag.String("config", "", "Path to tuning JSON (default: built-in defaults)")
	listen         = flag.String("listen", ":8082", "HTTP listen address")
	grpcListen     = flag.String("grpc-listen", "localhost:50052", "gRPC health listen address (empty disables)")
	udpAddr        = flag.String("udp-addr", ":5600", "UDP address for depth packets (empty disables)")
	ascFile        = flag.String("asc", "", "Replay frames from an ASC recording instead of UDP")
	replayInterval = flag.Duration("replay-interval", 100*time.Millisecond, "Delay between replayed ASC frames")
	replayLoop     = flag.Bool("loop", false, "Loop the ASC replay")
	pcapFile       = flag.String("pcap", "", "Replay depth packets from a PCAP capture (requires -tags=pcap)")
	pcapSpeed      = flag.Float64("pcap-speed", 1.0, "PCAP replay speed multiplier (1.0 = capture timing)")
	dbFile         = flag.String("db", "depthgrid.db", "SQLite snapshot database (empty disables)")
	serialPort     = flag.String("serial", "", "Serial port for cue output (empty logs cues)")
	verbose        = flag.Bool("verbose", false, "Log per-frame and per-tone detail")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("depthgrid %s\n", version.String())
		return
	}
	monitoring.SetVerbose(*verbose)
	log.Printf("depthgrid %s", version.String())

	tuning := config.DefaultTuningConfig()
	if *configFile != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
		log.Printf("Loaded tuning config from %s", *configFile)
	}

	sinks := cue.NewMultiSink(cue.LogSink{})
	if *serialPort != "" {
		s, err := cue.OpenSerialSink(*serialPort, cue.DefaultPortOptions())
		if err != nil {
			log.Fatalf("Failed to open cue serial port: %v", err)
		}
		defer s.Close()
		sinks.Add(s)
		log.Printf("Sending cues to %s", *serialPort)
	}

	opts := []pipeline.Option{pipeline.WithSink(sinks)}
	var db *sqlite.DB
	if *dbFile != "" {
		var err error
		db, err = sqlite.OpenDB(*dbFile)
		if err != nil {
			log.Fatalf("Failed to open snapshot database: %v", err)
		}
		defer db.Close()
		opts = append(opts, pipeline.WithStore(db))
	}

	proc, err := pipeline.NewProcessor(pipeline.ConfigFromTuning(tuning), opts...)
	if err != nil {
		log.Fatalf("Failed to create processor: %v", err)
	}

	var replay *network.FileSource
	if *ascFile != "" {
		replay, err = network.OpenASCSource(*ascFile, *replayInterval)
		if err != nil {
			log.Fatalf("Failed to load replay: %v", err)
		}
		replay.Loop = *replayLoop
	}

	var udp *network.UDPListener
	if *ascFile == "" && *pcapFile == "" && *udpAddr != "" {
		udp = network.NewUDPListener(network.UDPListenerConfig{
			Address:     *udpAddr,
			LogInterval: time.Minute,
			Handler:     proc,
		})
	}

	wsCfg := monitor.WebServerConfig{Address: *listen, Source: proc}
	if db != nil {
		wsCfg.Snapshots = db
		wsCfg.Admin = db
	}
	if udp != nil {
		wsCfg.SourceStats = func() any { return udp.Stats() }
	}
	ws, err := monitor.NewWebServer(wsCfg)
	if err != nil {
		log.Fatalf("Failed to create monitor: %v", err)
	}
	health := monitor.NewHealthServer()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("%s error: %v", name, err)
			}
			log.Printf("%s routine terminated", name)
		}()
	}

	run("processor", func() error {
		return health.Track(func() error { return proc.Run(ctx) })
	})
	run("http", func() error { return ws.Start(ctx) })
	if *grpcListen != "" {
		run("grpc", func() error { return health.ListenAndServe(ctx, *grpcListen) })
	}

	switch {
	case replay != nil:
		log.Printf("Replaying %d frames from %s", len(replay.Frames), *ascFile)
		run("replay", func() error { return replay.Run(ctx, proc) })
	case *pcapFile != "":
		port := 5600
		if *udpAddr != "" {
			if p, err := udpPortOf(*udpAddr); err == nil {
				port = p
			}
		}
		run("pcap", func() error {
			stats, err := network.ReadPCAPFileRealtime(ctx, *pcapFile, port, proc, network.RealtimeReplayConfig{SpeedMultiplier: *pcapSpeed})
			log.Printf("PCAP replay: %d packets, %d frames, %d dropped", stats.Packets, stats.Frames, stats.Dropped)
			return err
		})
	case udp != nil:
		run("udp", func() error { return udp.Start(ctx) })
	default:
		log.Printf("No frame source configured; serving monitor only")
	}

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
