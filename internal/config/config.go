package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/charging-platform/charge-point-client/internal/store"
)

// Config is the full application configuration.
type Config struct {
	ChargePoint ChargePointConfig `mapstructure:"charge_point"`
	Store       StoreConfig       `mapstructure:"store"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// ChargePointConfig identifies the simulated charge point and tunes the
// protocol engine.
type ChargePointConfig struct {
	WsURL        string   `mapstructure:"ws_url"`
	CPID         string   `mapstructure:"cp_id"`
	DefaultIDTag string   `mapstructure:"default_id_tag"`
	Subprotocols []string `mapstructure:"subprotocols"`

	Vendor            string `mapstructure:"vendor"`
	Model             string `mapstructure:"model"`
	SerialNumber      string `mapstructure:"serial_number"`
	ChargeBoxSerial   string `mapstructure:"charge_box_serial"`
	FirmwareVersion   string `mapstructure:"firmware_version"`
	MeterType         string `mapstructure:"meter_type"`
	MeterSerialNumber string `mapstructure:"meter_serial_number"`

	// RemoteStartDelay simulates the cable plug-in time before a remotely
	// started transaction begins.
	RemoteStartDelay time.Duration `mapstructure:"remote_start_delay"`
	// RemoteStartStopResponse is the status returned to RemoteStart/
	// RemoteStopTransaction: "Accepted" or "Rejected".
	RemoteStartStopResponse string `mapstructure:"remote_start_stop_response"`
	// CallTimeout bounds how long an outbound CALL waits for its reply.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// StoreConfig selects the durable store backend.
type StoreConfig struct {
	Backend string            `mapstructure:"backend"` // "file" or "redis"
	File    string            `mapstructure:"file"`
	Redis   store.RedisConfig `mapstructure:"redis"`
}

// LogConfig holds the logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	Async  bool   `mapstructure:"async"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// TelemetryConfig holds the Kafka event export settings.
type TelemetryConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Load reads the configuration from the given file (optional), environment
// variables prefixed CHARGEPOINT_, and built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHARGEPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("charge_point.ws_url", "ws://localhost:8080/ocpp/")
	v.SetDefault("charge_point.cp_id", "CP01")
	v.SetDefault("charge_point.default_id_tag", "DEADBEEF")
	v.SetDefault("charge_point.subprotocols", []string{"ocpp1.6", "ocpp1.5"})

	v.SetDefault("charge_point.vendor", "Elmo")
	v.SetDefault("charge_point.model", "Elmo-Virtual1")
	v.SetDefault("charge_point.serial_number", "elm.001.13.1")
	v.SetDefault("charge_point.charge_box_serial", "elm.001.13.1.01")
	v.SetDefault("charge_point.firmware_version", "0.9.87")
	v.SetDefault("charge_point.meter_type", "ELM NQC-ACDC")
	v.SetDefault("charge_point.meter_serial_number", "elm.001.13.1.01")

	v.SetDefault("charge_point.remote_start_delay", "3s")
	v.SetDefault("charge_point.remote_start_stop_response", "Accepted")
	v.SetDefault("charge_point.call_timeout", "30s")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.file", "chargepoint.json")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.async", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9100")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.brokers", []string{"localhost:9092"})
	v.SetDefault("telemetry.topic", "chargepoint-events")
}
