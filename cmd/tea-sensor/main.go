// Command tea-sensor watches a cup on a pressure sensor and escalates a
// light and sound alert when a drink is left to go cold.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/sweeney/tea-sensor/internal/alarm"
	"github.com/sweeney/tea-sensor/internal/audio"
	"github.com/sweeney/tea-sensor/internal/config"
	"github.com/sweeney/tea-sensor/internal/diag"
	"github.com/sweeney/tea-sensor/internal/led"
	"github.com/sweeney/tea-sensor/internal/light"
	"github.com/sweeney/tea-sensor/internal/logging"
	"github.com/sweeney/tea-sensor/internal/mqtt"
	"github.com/sweeney/tea-sensor/internal/presence"
	"github.com/sweeney/tea-sensor/internal/sensor"
	"github.com/sweeney/tea-sensor/internal/status"
	"github.com/sweeney/tea-sensor/internal/telemetry"
	"github.com/sweeney/tea-sensor/internal/web"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliFlags are command-line overrides for the config file.
type cliFlags struct {
	configPath string
	poll       time.Duration
	broker     string
	httpAddr   string
	logLevel   string
	printState bool
}

func newFlagSet() (*flag.FlagSet, *cliFlags) {
	f := &cliFlags{}
	fs := flag.NewFlagSet("tea-sensor", flag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to YAML config file")
	fs.DurationVar(&f.poll, "poll", 0, "Sensor polling interval (overrides config)")
	fs.StringVar(&f.broker, "broker", "", `MQTT broker address, "" disables (overrides config)`)
	fs.StringVar(&f.httpAddr, "http", "", `HTTP status address, "" disables (overrides config)`)
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	fs.BoolVar(&f.printState, "print-state", false, "Print the current sensor reading and exit")
	return fs, f
}

// apply copies every flag that was set explicitly onto cfg.
func (f *cliFlags) apply(fs *flag.FlagSet, cfg *config.Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "poll":
			cfg.Poll = f.poll
		case "broker":
			cfg.MQTT.Broker = f.broker
		case "http":
			cfg.HTTP.Addr = f.httpAddr
		case "log-level":
			cfg.Logging.Level = f.logLevel
		}
	})
}

func main() {
	fs, flags := newFlagSet()
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		logging.Default().Error("load config", "error", err)
		os.Exit(1)
	}
	flags.apply(fs, cfg)
	if err := cfg.Validate(); err != nil {
		logging.Default().Error("invalid flags", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging, version)
	if err := run(cfg, flags.printState, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, printState bool, log *logging.Logger) error {
	reader, err := sensor.NewRealReader(cfg.Sensor.Chip, cfg.Sensor.Pin, cfg.Sensor.ActiveLow)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer reader.Close()

	if printState {
		return printReading(os.Stdout, reader, cfg.Sensor.Threshold)
	}

	writer, err := led.NewRealWriter(cfg.LED.Chip, cfg.LED.Pin, cfg.PWMPeriod())
	if err != nil {
		return fmt.Errorf("init led: %w", err)
	}
	defer writer.Close()

	player := audio.NewExecPlayer(cfg.Audio.Player, cfg.Audio.Args)
	defer player.Close()

	clock := clockz.RealClock
	debouncer := presence.NewDebouncer(cfg.Sensor.Threshold, cfg.Sensor.Debounce)

	l, err := light.New(writer, clock)
	if err != nil {
		return fmt.Errorf("init light: %w", err)
	}
	seq, err := alarm.NewSequencer(l, player, debouncer, alarmConfig(cfg), clock)
	if err != nil {
		return fmt.Errorf("init sequencer: %w", err)
	}

	tracker := status.NewTracker(clock, statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	attachObservers(seq, log, clock, func(t diag.Transition) {
		tracker.RecordTransition(t)
		diag.Emit(t)
	})

	var publisher mqtt.Publisher
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			BufferSize: cfg.MQTT.BufferSize,
			Log:        log,
		})
		defer p.Close()
		publisher, mqttStatus = p, p
	}

	var influx *telemetry.Client
	if cfg.InfluxDB.Enabled {
		influx, err = telemetry.Connect(context.Background(), cfg.InfluxDB, cfg.Device.ID)
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
		} else {
			defer influx.Close()
			tlog := log.With("component", "telemetry")
			influx.SetOnError(func(err error) { tlog.Warn("write failed", "error", err) })
		}
	}

	hookSinks(log, publisher, influx)
	// Drain pending hook deliveries before the sinks close.
	defer diag.Shutdown()

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, log)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTP.Addr)
	}

	c := &controller{
		reader:     reader,
		debouncer:  debouncer,
		seq:        seq,
		tracker:    tracker,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		heartbeat:  diag.NewHeartbeat(cfg.MQTT.Heartbeat, clock.Now()),
		now:        clock.Now,
		log:        log,
	}
	if influx != nil {
		c.samples = influx
	}
	c.startup()

	log.Info("started",
		"device", cfg.Device.ID,
		"poll", cfg.Poll,
		"broker", cfg.MQTT.Broker,
		"heartbeat", cfg.MQTT.Heartbeat,
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return c.runLoop(ticker.C, sigCh)
}

// attachObservers wires transition logging and recording onto both machines.
func attachObservers(seq *alarm.Sequencer, log *logging.Logger, clock clockz.Clock, emit diag.Emitter) {
	alog := log.With("component", "alarm")
	seq.Observers().Attach(diag.NewLogObserver[*alarm.Sequencer](alog, "alarm", slog.LevelInfo))
	arec := diag.NewRecorder[*alarm.Sequencer]("alarm", clock, emit)
	arec.Resume(seq.TimeInState())
	seq.Observers().Attach(arec)

	l := seq.Light()
	l.Observers().Attach(diag.NewLogObserver[*light.Light](alog, "light", slog.LevelDebug))
	lrec := diag.NewRecorder[*light.Light]("light", clock, emit)
	lrec.Resume(l.TimeInState())
	l.Observers().Attach(lrec)
}

// hookSinks forwards transition signals to the network sinks. Hooks run off
// the control thread.
func hookSinks(log *logging.Logger, publisher mqtt.Publisher, influx *telemetry.Client) {
	if publisher == nil && influx == nil {
		return
	}
	mlog := log.With("component", "mqtt")
	diag.OnTransition(func(_ context.Context, t diag.Transition) {
		if publisher != nil {
			if err := publisher.Publish(t); err != nil {
				mlog.Warn("publish transition", "error", err)
			}
		}
		if influx != nil {
			influx.WriteTransition(t)
		}
	})
}

func alarmConfig(cfg *config.Config) alarm.Config {
	return alarm.Config{
		Startup:          cfg.Timings.Startup,
		BlinkOn:          cfg.Timings.BlinkOn,
		BlinkOff:         cfg.Timings.BlinkOff,
		Fade:             cfg.Timings.Fade,
		Brew:             cfg.Timings.Brew,
		Drink:            cfg.Timings.Drink,
		CupAbsence:       cfg.Timings.CupAbsence,
		SilentAlert:      cfg.Timings.SilentAlert,
		ClipLength:       cfg.Timings.ClipLength,
		AlertPause:       cfg.Timings.AlertPause,
		StartupPeak:      cfg.Brightness.StartupPeak,
		IdleBrightness:   cfg.Brightness.Idle,
		ActiveBrightness: cfg.Brightness.Active,
		Clip:             cfg.Audio.Clip,
		AlertVolume:      cfg.Audio.Volume,
	}
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		DeviceID:    cfg.Device.ID,
		PollMs:      cfg.Poll.Milliseconds(),
		DebounceMs:  cfg.Sensor.Debounce.Milliseconds(),
		HeartbeatMs: cfg.MQTT.Heartbeat.Milliseconds(),
		BrewMs:      cfg.Timings.Brew.Milliseconds(),
		DrinkMs:     cfg.Timings.Drink.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.HTTP.Addr,
		Telemetry:   cfg.InfluxDB.Enabled,
	}
}
