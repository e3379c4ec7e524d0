package config

import (
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/viper"

	"github.com/flightctl/flightctl/internal/autopilot"
	"github.com/flightctl/flightctl/internal/engine"
	"github.com/flightctl/flightctl/internal/physics"
	"github.com/flightctl/flightctl/internal/rocket"
	"github.com/flightctl/flightctl/internal/sim"
	"github.com/flightctl/flightctl/pkg/core"
)

// FileName is the config file looked up in the config directory.
const FileName = "flightctl.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds streaming backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the recording backend
type StorageConfig struct {
	Type          string          `json:"type" mapstructure:"type"`
	FrameInterval int             `json:"frameInterval" mapstructure:"frameInterval"`
	Memory        MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket     WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName     string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout    time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint        string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure        bool          `json:"insecure" mapstructure:"insecure"`
	Metrics         bool          `json:"metrics" mapstructure:"metrics"`
	MetricsInterval time.Duration `json:"metricsInterval" mapstructure:"metricsInterval"`
}

// HarnessConfig bounds scenario execution
type HarnessConfig struct {
	MaxTicks           int     `json:"maxTicks" mapstructure:"maxTicks"`
	CompletionAltitude float64 `json:"completionAltitude" mapstructure:"completionAltitude"`
	VelocityTolerance  float64 `json:"velocityTolerance" mapstructure:"velocityTolerance"`
	TrajectoryInterval int     `json:"trajectoryInterval" mapstructure:"trajectoryInterval"`
	ScenarioFile       string  `json:"scenarioFile" mapstructure:"scenarioFile"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default; Load calls it before reading the file.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./flightlogs")
	viper.SetDefault("logToFile", false)
	viper.SetDefault("defaultTag", "regression")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "flightctl")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "flightctl")
	viper.SetDefault("influx.backupDir", "./flightlogs")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "development")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.frameInterval", 10)
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "flightctl")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
	viper.SetDefault("otel.metrics", false)
	viper.SetDefault("otel.metricsInterval", "10s")

	simDefaults := sim.DefaultConfig()
	viper.SetDefault("sim.frameDt", simDefaults.FrameDT)
	viper.SetDefault("sim.substeps", simDefaults.Substeps)
	viper.SetDefault("sim.drag", simDefaults.Drag)
	viper.SetDefault("sim.sensorNoise", simDefaults.SensorNoise)
	viper.SetDefault("sim.noiseSeed", 1)

	world := physics.DefaultWorld()
	viper.SetDefault("world.gravity", world.Gravity.Len())
	viper.SetDefault("world.ground", world.Ground)
	viper.SetDefault("world.friction", world.Friction)
	viper.SetDefault("world.contactDamping", world.ContactDamping)

	geom := rocket.DefaultGeometry()
	viper.SetDefault("rocket.width", geom.Width)
	viper.SetDefault("rocket.height", geom.Height)
	viper.SetDefault("rocket.mass", geom.Mass)

	lim := engine.DefaultLimits()
	viper.SetDefault("engine.minThrust", lim.MinThrust)
	viper.SetDefault("engine.maxThrust", lim.MaxThrust)
	viper.SetDefault("engine.maxThrustRate", lim.MaxThrustRate)
	viper.SetDefault("engine.maxGimbalAngle", lim.MaxGimbalAngle)
	viper.SetDefault("engine.maxGimbalRate", lim.MaxGimbalRate)

	for k, v := range autopilot.DefaultGains().Parameters() {
		viper.SetDefault("autopilot."+k, v)
	}
	viper.SetDefault("autopilot.touchdownMode", autopilot.DefaultGains().TouchdownMode.String())

	viper.SetDefault("harness.maxTicks", 30000)
	viper.SetDefault("harness.completionAltitude", 200.0)
	viper.SetDefault("harness.velocityTolerance", 0.1)
	viper.SetDefault("harness.trajectoryInterval", 10)
	viper.SetDefault("harness.scenarioFile", "")

	viper.SetDefault("sweep.parallelism", 4)
	viper.SetDefault("monitor.interval", "5s")
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetStorageConfig returns the recording backend settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		FrameInterval: viper.GetInt("storage.frameInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:         viper.GetBool("otel.enabled"),
		ServiceName:     viper.GetString("otel.serviceName"),
		BatchTimeout:    viper.GetDuration("otel.batchTimeout"),
		Endpoint:        viper.GetString("otel.endpoint"),
		Insecure:        viper.GetBool("otel.insecure"),
		Metrics:         viper.GetBool("otel.metrics"),
		MetricsInterval: viper.GetDuration("otel.metricsInterval"),
	}
}

// GetHarnessConfig returns the scenario execution bounds.
func GetHarnessConfig() HarnessConfig {
	return HarnessConfig{
		MaxTicks:           viper.GetInt("harness.maxTicks"),
		CompletionAltitude: viper.GetFloat64("harness.completionAltitude"),
		VelocityTolerance:  viper.GetFloat64("harness.velocityTolerance"),
		TrajectoryInterval: viper.GetInt("harness.trajectoryInterval"),
		ScenarioFile:       viper.GetString("harness.scenarioFile"),
	}
}

// GetSimConfig returns the loop timing and force model switches.
func GetSimConfig() sim.Config {
	return sim.Config{
		FrameDT:     viper.GetFloat64("sim.frameDt"),
		Substeps:    viper.GetInt("sim.substeps"),
		Drag:        viper.GetBool("sim.drag"),
		SensorNoise: viper.GetFloat64("sim.sensorNoise"),
		NoiseSeed:   viper.GetUint64("sim.noiseSeed"),
	}
}

// GetWorld returns the physics world. Gravity is configured as a magnitude
// and always points down.
func GetWorld() physics.World {
	w := physics.DefaultWorld()
	w.Gravity = mgl64.Vec2{0, -viper.GetFloat64("world.gravity")}
	w.Ground = viper.GetFloat64("world.ground")
	w.Friction = viper.GetFloat64("world.friction")
	w.ContactDamping = viper.GetFloat64("world.contactDamping")
	return w
}

// GetGains returns the autopilot tuning.
func GetGains() (autopilot.Gains, error) {
	mode, err := core.ParseMode(viper.GetString("autopilot.touchdownMode"))
	if err != nil {
		return autopilot.Gains{}, fmt.Errorf("autopilot.touchdownMode: %w", err)
	}
	return autopilot.Gains{
		AssistRate:              viper.GetFloat64("autopilot.assistRate"),
		AttitudeRate:            viper.GetFloat64("autopilot.attitudeRate"),
		StabilizeVelocityWeight: viper.GetFloat64("autopilot.stabilizeVelocityWeight"),
		HoverVelocityWeight:     viper.GetFloat64("autopilot.hoverVelocityWeight"),
		LandVelocityWeight:      viper.GetFloat64("autopilot.landVelocityWeight"),
		HoverDamping:            viper.GetFloat64("autopilot.hoverDamping"),
		HoverCosFloor:           viper.GetFloat64("autopilot.hoverCosFloor"),
		LandCompensationCap:     viper.GetFloat64("autopilot.landCompensationCap"),
		LandSafety:              viper.GetFloat64("autopilot.landSafety"),
		LandingOffsetDivisor:    viper.GetFloat64("autopilot.landingOffsetDivisor"),
		LandMinHeight:           viper.GetFloat64("autopilot.landMinHeight"),
		TouchdownDivisor:        viper.GetFloat64("autopilot.touchdownDivisor"),
		TouchdownMode:           mode,
		OverrideServo:           viper.GetFloat64("autopilot.overrideServo"),
		ThrustStep:              viper.GetFloat64("autopilot.thrustStep"),
		GimbalStep:              viper.GetFloat64("autopilot.gimbalStep"),
	}, nil
}

// GetParams returns the full vehicle definition.
func GetParams() (sim.Params, error) {
	gains, err := GetGains()
	if err != nil {
		return sim.Params{}, err
	}
	return sim.Params{
		Geometry: rocket.Geometry{
			Width:  viper.GetFloat64("rocket.width"),
			Height: viper.GetFloat64("rocket.height"),
			Mass:   viper.GetFloat64("rocket.mass"),
		},
		Limits: engine.Limits{
			MinThrust:      viper.GetFloat64("engine.minThrust"),
			MaxThrust:      viper.GetFloat64("engine.maxThrust"),
			MaxThrustRate:  viper.GetFloat64("engine.maxThrustRate"),
			MaxGimbalAngle: viper.GetFloat64("engine.maxGimbalAngle"),
			MaxGimbalRate:  viper.GetFloat64("engine.maxGimbalRate"),
		},
		Gains: gains,
		Drag:  rocket.DefaultDrag(),
	}, nil
}
