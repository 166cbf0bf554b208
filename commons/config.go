package commons

import (
	"flag"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/bbernhard/radiology-playground/analysis"
)

type RedisConfig struct {
	Address        string `toml:"address"`
	MaxConnections int    `toml:"max_connections"`
}

type InferenceConfig struct {
	URL               string        `toml:"url"`
	Timeout           time.Duration `toml:"timeout"`
	RetryCount        int           `toml:"retry_count"`
	MaxImageDimension int           `toml:"max_image_dimension"`
}

type APIConfig struct {
	Listen         string        `toml:"listen"`
	PredictionsDir string        `toml:"predictions_dir"`
	SessionTTL     time.Duration `toml:"session_ttl"`
	MaxUploadSize  int64         `toml:"max_upload_size"`
}

type WorkerConfig struct {
	MaxWorkers         int `toml:"max_workers"`
	MaxWorkerQueueSize int `toml:"max_worker_queue_size"`
}

// Config is shared by the api, the predict worker and the cli.
// Precedence: defaults, config file, environment, command line.
type Config struct {
	Release   bool            `toml:"release"`
	LogLevel  string          `toml:"log_level"`
	SentryDSN string          `toml:"sentry_dsn"`
	Redis     RedisConfig     `toml:"redis"`
	Inference InferenceConfig `toml:"inference"`
	API       APIConfig       `toml:"api"`
	Worker    WorkerConfig    `toml:"worker"`
	Policy    analysis.Policy `toml:"policy"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "debug",
		Redis: RedisConfig{
			Address:        ":6379",
			MaxConnections: 50,
		},
		Inference: InferenceConfig{
			URL:               "http://127.0.0.1:5000/predict",
			Timeout:           2 * time.Minute,
			MaxImageDimension: 1024,
		},
		API: APIConfig{
			Listen:         ":8081",
			PredictionsDir: "../predictions/",
			SessionTTL:     time.Hour,
			MaxUploadSize:  32 << 20,
		},
		Worker: WorkerConfig{
			MaxWorkers:         5,
			MaxWorkerQueueSize: 100,
		},
		Policy: analysis.DefaultPolicy(),
	}
}

func bindFlags(name string, c *Config, configPath *string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(configPath, "config", "", "Path to a TOML config file")
	fs.BoolVar(&c.Release, "release", c.Release, "Run in release mode")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&c.Redis.Address, "redis-address", c.Redis.Address, "Address to the Redis server")
	fs.IntVar(&c.Redis.MaxConnections, "redis-max-connections", c.Redis.MaxConnections, "Max connections to Redis")
	fs.StringVar(&c.Inference.URL, "inference-url", c.Inference.URL, "URL of the inference API")
	fs.DurationVar(&c.Inference.Timeout, "inference-timeout", c.Inference.Timeout, "Timeout of one inference call")
	fs.IntVar(&c.Inference.RetryCount, "inference-retries", c.Inference.RetryCount, "Retries of a failed inference call")
	fs.IntVar(&c.Inference.MaxImageDimension, "max-image-dimension", c.Inference.MaxImageDimension, "Images larger than this are downscaled before inference")
	fs.StringVar(&c.API.Listen, "listen", c.API.Listen, "Address the api listens on")
	fs.StringVar(&c.API.PredictionsDir, "predictions-dir", c.API.PredictionsDir, "Location of the temporary saved images for predictions")
	fs.DurationVar(&c.API.SessionTTL, "session-ttl", c.API.SessionTTL, "Idle time after which an analysis session is dropped")
	fs.IntVar(&c.Worker.MaxWorkers, "max-workers", c.Worker.MaxWorkers, "The number of workers to start")
	fs.IntVar(&c.Worker.MaxWorkerQueueSize, "max-worker-queue-size", c.Worker.MaxWorkerQueueSize, "The size of job queue")
	fs.IntVar(&c.Policy.TableLimit, "table-limit", c.Policy.TableLimit, "Rows shown while the ranked table is collapsed")
	return fs
}

// LoadConfig resolves the configuration for the binary called name from args.
// extra registers flags that only the calling binary knows about.
func LoadConfig(name string, args []string, extra ...func(fs *flag.FlagSet)) (Config, error) {
	var configPath string
	scratch := DefaultConfig()
	pre := bindFlags(name, &scratch, &configPath)
	for _, register := range extra {
		register(pre)
	}
	pre.SetOutput(io.Discard)
	if err := pre.Parse(args); err != nil {
		return scratch, err
	}

	cfg := DefaultConfig()
	if configPath != "" {
		if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "couldn't read config file %s", configPath)
		}
	}

	// a missing .env is fine, the environment is used as is
	_ = godotenv.Load()
	cfg.applyEnv()

	fs := bindFlags(name, &cfg, &configPath)
	for _, register := range extra {
		register(fs)
	}
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		c.SentryDSN = v
	}
	if v := os.Getenv("INFERENCE_URL"); v != "" {
		c.Inference.URL = v
	}
	if v := os.Getenv("REDIS_ADDRESS"); v != "" {
		c.Redis.Address = v
	}
	if v, err := strconv.ParseBool(os.Getenv("RELEASE")); err == nil {
		c.Release = v
	}
}

func (c Config) Validate() error {
	if c.Inference.URL == "" {
		return errors.New("inference url is required")
	}
	if c.Redis.MaxConnections <= 0 {
		return errors.New("redis max connections must be positive")
	}
	if c.Worker.MaxWorkers <= 0 || c.Worker.MaxWorkerQueueSize <= 0 {
		return errors.New("worker pool sizes must be positive")
	}
	if c.API.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}
	return errors.Wrap(c.Policy.Validate(), "invalid policy")
}
