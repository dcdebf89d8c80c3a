// Package config loads the daemon configuration.
//
// Loading order: built-in defaults, then the YAML file (if any), then
// TEASENSOR_* environment variables, then validation. Configuration is read
// once at startup; nothing reloads it while the daemon runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Device     DeviceConfig     `yaml:"device"`
	Sensor     SensorConfig     `yaml:"sensor"`
	LED        LEDConfig        `yaml:"led"`
	Audio      AudioConfig      `yaml:"audio"`
	Timings    TimingsConfig    `yaml:"timings"`
	Brightness BrightnessConfig `yaml:"brightness"`
	Poll       time.Duration    `yaml:"poll" validate:"gt=0"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	HTTP       HTTPConfig       `yaml:"http"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DeviceConfig identifies this sensor in diagnostics.
type DeviceConfig struct {
	// ID defaults to a random UUID when empty.
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SensorConfig contains pressure sensor wiring and filtering.
type SensorConfig struct {
	Chip      string        `yaml:"chip" validate:"required"`
	Pin       int           `yaml:"pin" validate:"gte=0"`
	ActiveLow bool          `yaml:"active_low"`
	Threshold float64       `yaml:"threshold" validate:"gte=0,lt=1"`
	Debounce  time.Duration `yaml:"debounce" validate:"gte=0"`
}

// LEDConfig contains indicator LED wiring.
type LEDConfig struct {
	Chip  string `yaml:"chip" validate:"required"`
	Pin   int    `yaml:"pin" validate:"gte=0"`
	PWMHz int    `yaml:"pwm_hz" validate:"gt=0,lte=10000"`
}

// AudioConfig contains the alert player settings.
type AudioConfig struct {
	// Player is the executable used to play the clip.
	Player string `yaml:"player" validate:"required"`
	// Args may contain {clip} and {volume} placeholders.
	Args   []string `yaml:"args"`
	Clip   string   `yaml:"clip" validate:"required"`
	Volume float64  `yaml:"volume" validate:"gte=0,lte=1"`
}

// TimingsConfig contains the escalation windows.
type TimingsConfig struct {
	Startup     time.Duration `yaml:"startup" validate:"gt=0"`
	BlinkOn     time.Duration `yaml:"blink_on" validate:"gt=0"`
	BlinkOff    time.Duration `yaml:"blink_off" validate:"gt=0"`
	Fade        time.Duration `yaml:"fade" validate:"gte=0"`
	Brew        time.Duration `yaml:"brew" validate:"gt=0"`
	Drink       time.Duration `yaml:"drink" validate:"gt=0"`
	CupAbsence  time.Duration `yaml:"cup_absence" validate:"gt=0"`
	SilentAlert time.Duration `yaml:"silent_alert" validate:"gt=0"`
	ClipLength  time.Duration `yaml:"clip_length" validate:"gt=0"`
	AlertPause  time.Duration `yaml:"alert_pause" validate:"gt=0"`
}

// BrightnessConfig contains LED levels in [0, 1].
type BrightnessConfig struct {
	StartupPeak float64 `yaml:"startup_peak" validate:"gt=0,lte=1"`
	Idle        float64 `yaml:"idle" validate:"gte=0,lte=1"`
	Active      float64 `yaml:"active" validate:"gte=0,lte=1"`
}

// MQTTConfig contains the diagnostics publisher settings.
// An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker     string        `yaml:"broker"`
	ClientID   string        `yaml:"client_id"`
	Heartbeat  time.Duration `yaml:"heartbeat" validate:"gte=0"`
	BufferSize int           `yaml:"buffer_size" validate:"gte=0"`
}

// HTTPConfig contains the status page settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// InfluxDBConfig contains telemetry export settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size" validate:"gte=0"`
	FlushInterval int    `yaml:"flush_interval" validate:"gte=0"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
	Output string `yaml:"output" validate:"omitempty,oneof=stdout stderr"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads configuration from a YAML file and applies environment variable
// overrides. An empty path uses defaults and the environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Device.ID == "" {
		cfg.Device.ID = uuid.NewString()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config holding the values the device ships with.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Name: "tea-sensor",
		},
		Sensor: SensorConfig{
			Chip:      "gpiochip0",
			Pin:       17,
			Threshold: 0.81,
			Debounce:  500 * time.Millisecond,
		},
		LED: LEDConfig{
			Chip:  "gpiochip0",
			Pin:   13,
			PWMHz: 500,
		},
		Audio: AudioConfig{
			Player: "play",
			Args:   []string{"-q", "-v", "{volume}", "{clip}"},
			Clip:   "/ffsong.wav",
			Volume: 0.2,
		},
		Timings: TimingsConfig{
			Startup:     2 * time.Second,
			BlinkOn:     500 * time.Millisecond,
			BlinkOff:    250 * time.Millisecond,
			Fade:        500 * time.Millisecond,
			Brew:        9 * time.Minute,
			Drink:       4*time.Minute + 30*time.Second,
			CupAbsence:  time.Minute,
			SilentAlert: time.Minute,
			ClipLength:  30 * time.Second,
			AlertPause:  15 * time.Second,
		},
		Brightness: BrightnessConfig{
			StartupPeak: 0.5,
			Idle:        0.05,
			Active:      0.1,
		},
		Poll: 10 * time.Millisecond,
		MQTT: MQTTConfig{
			ClientID:   "tea-sensor",
			Heartbeat:  15 * time.Minute,
			BufferSize: 100,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies TEASENSOR_SECTION_KEY environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TEASENSOR_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}
	if v := os.Getenv("TEASENSOR_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("TEASENSOR_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("TEASENSOR_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("TEASENSOR_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("TEASENSOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	var errs []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Sprintf("%s fails %q", fieldPath(fe.Namespace()), fe.Tag()))
		}
	}

	if c.Brightness.Idle >= c.Brightness.Active {
		errs = append(errs, "brightness.idle must be below brightness.active")
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// PWMPeriod returns the LED PWM period.
func (c *Config) PWMPeriod() time.Duration {
	return time.Second / time.Duration(c.LED.PWMHz)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
