package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Camera    CameraConfig    `yaml:"camera"`
	Engine    EngineConfig    `yaml:"engine"`
	Actuator  ActuatorConfig  `yaml:"actuator"`
	Gallery   GalleryConfig   `yaml:"gallery"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	APIToken string `yaml:"-"` // bearer token for the control API, empty disables auth

	AllowedOrigins []string `yaml:"allowed_origins"` // CORS allow-list, localhost is always allowed
}

type CameraConfig struct {
	Driver   string        `yaml:"driver"` // http or file
	URL      string        `yaml:"url"`    // snapshot URL for the http driver
	Path     string        `yaml:"path"`   // image file or directory for the file driver
	Timeout  time.Duration `yaml:"timeout"`
	MaxWidth int           `yaml:"max_width"` // frames wider than this are downscaled
}

type EngineConfig struct {
	URL              string        `yaml:"url"` // embedding server base URL
	Model            string        `yaml:"model"`
	MatchThreshold   float64       `yaml:"match_threshold"` // max cosine distance accepted as a match
	MinDetScore      float64       `yaml:"min_det_score"`
	MinFaceSize      int           `yaml:"min_face_size"`
	HNSWMinTemplates int           `yaml:"hnsw_min_templates"`
	Timeout          time.Duration `yaml:"timeout"`
}

type ActuatorConfig struct {
	Driver         string        `yaml:"driver"` // gpio or log
	RelayPin       string        `yaml:"relay_pin"`
	IndicatorPin   string        `yaml:"indicator_pin"`
	BuzzerPin      string        `yaml:"buzzer_pin"`
	RelayActiveLow bool          `yaml:"relay_active_low"`
	Dwell          time.Duration `yaml:"dwell"`
	DwellMode      string        `yaml:"dwell_mode"` // blocking or deadline
}

type GalleryConfig struct {
	Capacity int    `yaml:"capacity"`
	Store    string `yaml:"store"` // memory, file, postgres or mariadb
	Path     string `yaml:"path"`  // gob file for the file store
	URL      string `yaml:"-"`     // DSN for the postgres and mariadb stores
}

type SchedulerConfig struct {
	Idle  time.Duration `yaml:"idle"`
	Queue int           `yaml:"queue"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Addr returns the listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a positive float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envDuration reads a positive Go duration such as "3s" or "250ms".
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envCount reads a non-negative integer, so 0 can switch a feature off.
func envCount(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := strings.TrimSpace(os.Getenv(key)); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated list, dropping empty items.
func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Load builds the configuration from the embedded defaults and environment
// overrides. Invalid values fall back to the defaults.
func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Server.Host = envString("WEB_HOST", cfg.Server.Host)
	cfg.Server.Port = envInt("WEB_PORT", cfg.Server.Port)
	cfg.Server.APIToken = os.Getenv("WEB_API_TOKEN")
	cfg.Server.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Camera.Driver = envString("CAMERA_DRIVER", cfg.Camera.Driver)
	cfg.Camera.URL = envString("CAMERA_URL", cfg.Camera.URL)
	cfg.Camera.Path = envString("CAMERA_PATH", cfg.Camera.Path)
	cfg.Camera.Timeout = envDuration("CAMERA_TIMEOUT", cfg.Camera.Timeout)
	cfg.Camera.MaxWidth = envInt("CAMERA_MAX_WIDTH", cfg.Camera.MaxWidth)

	cfg.Engine.URL = envString("ENGINE_URL", cfg.Engine.URL)
	cfg.Engine.Model = envString("ENGINE_MODEL", cfg.Engine.Model)
	cfg.Engine.MatchThreshold = envFloat("ENGINE_MATCH_THRESHOLD", cfg.Engine.MatchThreshold)
	cfg.Engine.MinDetScore = envFloat("ENGINE_MIN_DET_SCORE", cfg.Engine.MinDetScore)
	cfg.Engine.MinFaceSize = envInt("ENGINE_MIN_FACE_SIZE", cfg.Engine.MinFaceSize)
	cfg.Engine.HNSWMinTemplates = envCount("ENGINE_HNSW_MIN_TEMPLATES", cfg.Engine.HNSWMinTemplates)
	cfg.Engine.Timeout = envDuration("ENGINE_TIMEOUT", cfg.Engine.Timeout)

	cfg.Actuator.Driver = envString("ACTUATOR_DRIVER", cfg.Actuator.Driver)
	cfg.Actuator.RelayPin = envString("ACTUATOR_RELAY_PIN", cfg.Actuator.RelayPin)
	cfg.Actuator.IndicatorPin = envString("ACTUATOR_INDICATOR_PIN", cfg.Actuator.IndicatorPin)
	cfg.Actuator.BuzzerPin = envString("ACTUATOR_BUZZER_PIN", cfg.Actuator.BuzzerPin)
	cfg.Actuator.RelayActiveLow = envBool("ACTUATOR_RELAY_ACTIVE_LOW", cfg.Actuator.RelayActiveLow)
	cfg.Actuator.Dwell = envDuration("ACTUATOR_DWELL", cfg.Actuator.Dwell)
	cfg.Actuator.DwellMode = envString("ACTUATOR_DWELL_MODE", cfg.Actuator.DwellMode)

	cfg.Gallery.Capacity = envInt("GALLERY_CAPACITY", cfg.Gallery.Capacity)
	cfg.Gallery.Store = envString("GALLERY_STORE", cfg.Gallery.Store)
	cfg.Gallery.Path = envString("GALLERY_PATH", cfg.Gallery.Path)
	cfg.Gallery.URL = os.Getenv("DATABASE_URL")

	cfg.Scheduler.Idle = envDuration("SCHEDULER_IDLE", cfg.Scheduler.Idle)
	cfg.Scheduler.Queue = envInt("SCHEDULER_QUEUE", cfg.Scheduler.Queue)

	cfg.Logging.Level = envString("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envString("LOG_FORMAT", cfg.Logging.Format)

	return &cfg
}
