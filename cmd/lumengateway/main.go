// Command lumengateway is the resident daemon bridging a Lutron-style
// lighting gateway's telnet integration port with local DMX/GPIO
// actuators and a browser-facing UI. It runs in two roles depending on
// how it was invoked: as a supervisor that execs and watches a worker
// child, or as that worker itself (identified by the presence of
// supervisor.HeartbeatFdEnv in its environment, or the -worker flag).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brightwell-systems/lumen-gateway/internal/actuator/dmx"
	"github.com/brightwell-systems/lumen-gateway/internal/actuator/relay"
	"github.com/brightwell-systems/lumen-gateway/internal/controller"
	"github.com/brightwell-systems/lumen-gateway/internal/gatewaylink"
	"github.com/brightwell-systems/lumen-gateway/internal/infrastructure/config"
	"github.com/brightwell-systems/lumen-gateway/internal/infrastructure/database"
	"github.com/brightwell-systems/lumen-gateway/internal/infrastructure/influxdb"
	"github.com/brightwell-systems/lumen-gateway/internal/infrastructure/logging"
	"github.com/brightwell-systems/lumen-gateway/internal/infrastructure/mqtt"
	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
	"github.com/brightwell-systems/lumen-gateway/internal/siteconfig"
	"github.com/brightwell-systems/lumen-gateway/internal/snapshot"
	"github.com/brightwell-systems/lumen-gateway/internal/supervisor"
	"github.com/brightwell-systems/lumen-gateway/internal/uiserver"

	_ "github.com/brightwell-systems/lumen-gateway/migrations"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	workerFlag := flag.Bool("worker", false, "run as a supervised worker process (set by the supervisor itself)")
	flag.Parse()

	if !*workerFlag && os.Getenv(supervisor.HeartbeatFdEnv) == "" {
		return runSupervised(*configPath)
	}
	return runWorker(*configPath)
}

// runSupervised execs this same binary with -worker, restarting it across
// crashes, missed heartbeats, and schema-invalidation restarts until the
// worker exits cleanly or the process receives a termination signal.
func runSupervised(configPath string) int {
	log := logging.Default()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sup := supervisor.New(supervisor.Config{
		Binary: os.Args[0],
		Args:   []string{"-worker", "-config", configPath},
		Env:    os.Environ(),
		Logger: log,
	})

	code, err := sup.Run(ctx)
	if err != nil {
		log.Error("supervisor exited with error", "error", err)
		return 1
	}
	return code
}

// runWorker wires and runs the daemon itself: the single-goroutine event
// reactor core (gateway link, schema store, controller) alongside the
// ambient collaborators (UI server, MQTT, InfluxDB) started as ordinary
// goroutines and coordinated through an errgroup.
func runWorker(configPath string) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lumengateway: loading config: %v\n", err)
		return 1
	}

	log := logging.New(cfg.Logging, "dev")
	log.Info("starting lumen gateway", "config", configPath)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		log.Error("opening database", "error", err)
		return 1
	}
	defer db.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		log.Error("running migrations", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	r := reactor.New()
	r.SetMaxPollTimeout(cfg.MaxPollDuration())
	store := schema.New()
	cache := schema.NewCache(db.DB)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			log.Warn("mqtt connect failed, continuing without it", "error", err)
			mqttClient = nil
		} else {
			defer mqttClient.Close()
		}
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warn("influxdb connect failed, continuing without it", "error", err)
			influxClient = nil
		} else {
			defer influxClient.Close()
		}
	}

	var dmxBank *dmx.Bank
	if cfg.Actuators.DMX.Enabled {
		dmxBank, err = dmx.Open(cfg.Actuators.DMX.Serial)
		if err != nil {
			log.Warn("dmx actuator unavailable, continuing without it", "error", err)
			dmxBank = nil
		} else {
			defer dmxBank.Close()
			dmxBank.StartRefresh(r)
		}
	}

	var relayBank *relay.Bank
	if cfg.Actuators.GPIO.Enabled {
		relayBank, err = relay.Open()
		if err != nil {
			log.Warn("gpio actuator unavailable, continuing without it", "error", err)
			relayBank = nil
		} else {
			defer relayBank.Close()
		}
	}

	// ctrl and ui each depend on the other's construction (the link's
	// callbacks need ctrl's methods, the controller's onSnapshotDirty
	// hook needs to broadcast through ui); both are forward-declared and
	// closed over by reference since neither closure runs until the
	// reactor loop starts, well after both are assigned below.
	var ctrl *controller.Controller
	var ui *uiserver.Server

	strategy := gatewaylink.StrategyDirect
	if cfg.Gateway.Strategy == "multicast" {
		strategy = gatewaylink.StrategyMulticast
	}
	linkCfg := gatewaylink.Config{
		Strategy:         strategy,
		Host:             cfg.Gateway.Host,
		Port:             cfg.Gateway.Port,
		User:             cfg.Gateway.User,
		Password:         cfg.Gateway.Password,
		DiscoveryTimeout: cfg.DiscoveryTimeoutDuration(),
	}
	link := gatewaylink.New(r, linkCfg,
		func(line string) { ctrl.OnInput(line) },
		func(l *gatewaylink.Link, done func()) { ctrl.OnInit(l, done) },
		func() { log.Warn("gateway link closed") },
	)
	link.SetLogger(log)

	ctrl = controller.New(r, link, store, func() {
		log.Warn("fetched schema differs from cached generation, requesting restart")
		supervisor.RequestRestart()
	}, func() {
		broadcastSnapshotDeltas(ctrl, ui, cfg, log, mqttClient, influxClient, db)
	})
	ctrl.SetLogger(log)

	if siteData, err := os.ReadFile(cfg.SiteFile); err != nil {
		log.Warn("no site description file, running with native outputs only", "path", cfg.SiteFile, "error", err)
	} else {
		doc, parseErrs := siteconfig.Parse(siteData)
		for _, e := range parseErrs {
			log.Warn("site description parse error", "error", e)
		}
		applyErrs := siteconfig.Apply(doc, ctrl, r, dmxBank, relayBank)
		for _, e := range applyErrs {
			log.Warn("site description apply error", "error", e)
		}
		ctrl.SetHooks(doc.Hooks)
	}

	ctrl.StartHealthCheck()

	ui, err = uiserver.New(uiserver.Deps{
		Config: uiserver.Config{
			Host:           cfg.UI.Host,
			Port:           cfg.UI.Port,
			JWTSecret:      cfg.UI.JWTSecret,
			AccessTokenTTL: cfg.AccessTokenTTLDuration(),
			Username:       cfg.UI.Username,
			Password:       cfg.UI.Password,
			AllowedOrigins: cfg.UI.AllowedOrigins,
			KeypadOrder:    cfg.UI.KeypadOrder,
		},
		Logger:     log,
		Controller: ctrl,
		Store:      store,
	})
	if err != nil {
		log.Error("constructing ui server", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ui.Start(gctx)
	})

	fetcher := schema.NewFetcher(r, fmt.Sprintf("%s:%d", cfg.Gateway.Host, cfg.Gateway.SchemaPort), cfg.Gateway.SchemaPath)
	r.Post(func() {
		ctrl.LoadSchema(context.Background(), cache, fetcher, func(err error) {
			if err != nil {
				log.Warn("schema fetch failed, continuing with cached generation", "error", err)
			}
			link.Connect()
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		r.ExitLoop()
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(gatewaylink.AliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				supervisor.Heartbeat()
			}
		}
	})

	r.Loop()
	// The reactor can also exit via a path other than gctx cancellation
	// (e.g. r.ExitLoop() called directly); cancel explicitly so the
	// ambient goroutines above always wind down.
	cancel()

	if err := ui.Close(); err != nil {
		log.Warn("closing ui server", "error", err)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker exited with error", "error", err)
		return 1
	}
	log.Info("lumen gateway stopped")
	return 0
}

// broadcastSnapshotDeltas drains the controller's pending level/LED
// deltas and fans them out to the UI WebSocket hub, the MQTT event bus,
// and the database's rolling level-history table. It runs on the reactor
// goroutine, so the MQTT/InfluxDB/database writes are offloaded to a
// short-lived goroutine rather than blocking the core.
func broadcastSnapshotDeltas(ctrl *controller.Controller, ui *uiserver.Server, cfg *config.Config, log *logging.Logger, mqttClient *mqtt.Client, influxClient *influxdb.Client, db *database.DB) {
	deltas := ctrl.PendingDeltas()
	if len(deltas) == 0 {
		return
	}

	if ui != nil {
		ui.Broadcast(snapshot.DeltaLine(deltas))
	}

	if mqttClient == nil && influxClient == nil {
		go recordLevelHistory(deltas, db, log)
		return
	}

	go func() {
		recordLevelHistory(deltas, db, log)

		topics := mqtt.Topics{}
		for _, d := range deltas {
			if mqttClient != nil {
				_ = mqttClient.PublishString(topics.OutputLED(d.LedID), strconv.FormatBool(d.On), byte(cfg.MQTT.QoS), true)
			}
			if influxClient != nil {
				influxClient.WriteDeviceMetric(strconv.Itoa(d.KeypadID), "dimmer_level", float64(d.Level))
			}
		}
	}()
}

func recordLevelHistory(deltas []controller.LevelDelta, db *database.DB, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, d := range deltas {
		if err := db.RecordLevel(ctx, d.LedID, int(d.Level)); err != nil {
			log.Warn("recording level history", "error", err)
		}
	}
}
