package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/dunamismax/thumbflow/internal/pipeline"
	"github.com/dunamismax/thumbflow/internal/telemetry"
	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
)

const (
	DefaultPath = ".env.toml"
	EnvPrefix   = "THUMB"
)

var ErrMissingBrand = errors.New("BRAND is not set")

type Config struct {
	Brand     string
	Thumbnail ThumbnailConfig
	Log       LogConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
	Queue     QueueConfig
	Worker    WorkerConfig
}

type ThumbnailConfig struct {
	MaxKB        int
	MaxWidth     int
	MaxHeight    int
	StartQuality int
	FinalQuality int
}

func (t ThumbnailConfig) Options() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.MaxKB = t.MaxKB
	opts.MaxBox = pipeline.BoundingBox{Width: t.MaxWidth, Height: t.MaxHeight}
	opts.StartQuality = t.StartQuality
	opts.FinalQuality = t.FinalQuality
	return opts
}

type LogConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

func (t TracingConfig) TraceConfig() telemetry.TraceConfig {
	return telemetry.TraceConfig{
		ServiceName:  t.ServiceName,
		Exporter:     t.Exporter,
		OTLPEndpoint: t.OTLPEndpoint,
		OTLPInsecure: t.OTLPInsecure,
	}
}

type MetricsConfig struct {
	Addr string
}

type QueueConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Name          string
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency     int
	ShutdownTimeout time.Duration
}

func setDefaults(v *viper.Viper) {
	defaults := pipeline.DefaultOptions()

	v.SetDefault("brand", "")

	v.SetDefault("thumbnail.max_kb", defaults.MaxKB)
	v.SetDefault("thumbnail.max_width", defaults.MaxBox.Width)
	v.SetDefault("thumbnail.max_height", defaults.MaxBox.Height)
	v.SetDefault("thumbnail.start_quality", defaults.StartQuality)
	v.SetDefault("thumbnail.final_quality", defaults.FinalQuality)

	v.SetDefault("log.level", "INFO")
	v.SetDefault("log.format", "console")

	v.SetDefault("tracing.service_name", "thumbflow")
	v.SetDefault("tracing.exporter", "none")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("tracing.otlp_insecure", false)

	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("queue.redis_addr", "localhost:6379")
	v.SetDefault("queue.redis_password", "")
	v.SetDefault("queue.redis_db", 0)
	v.SetDefault("queue.name", "default")

	v.SetDefault("worker.concurrency", max(2, runtime.NumCPU()))
	v.SetDefault("worker.shutdown_timeout", 10*time.Second)
}

// Keys are overridden by THUMB_<SECTION>_<KEY>, e.g. THUMB_LOG_LEVEL.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Config{
		Brand: strings.TrimSpace(v.GetString("brand")),
		Thumbnail: ThumbnailConfig{
			MaxKB:        v.GetInt("thumbnail.max_kb"),
			MaxWidth:     v.GetInt("thumbnail.max_width"),
			MaxHeight:    v.GetInt("thumbnail.max_height"),
			StartQuality: v.GetInt("thumbnail.start_quality"),
			FinalQuality: v.GetInt("thumbnail.final_quality"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Tracing: TracingConfig{
			ServiceName:  v.GetString("tracing.service_name"),
			Exporter:     v.GetString("tracing.exporter"),
			OTLPEndpoint: v.GetString("tracing.otlp_endpoint"),
			OTLPInsecure: v.GetBool("tracing.otlp_insecure"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
		Queue: QueueConfig{
			RedisAddr:     v.GetString("queue.redis_addr"),
			RedisPassword: v.GetString("queue.redis_password"),
			RedisDB:       v.GetInt("queue.redis_db"),
			Name:          v.GetString("queue.name"),
		},
		Worker: WorkerConfig{
			Concurrency:     v.GetInt("worker.concurrency"),
			ShutdownTimeout: v.GetDuration("worker.shutdown_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Brand == "" {
		return ErrMissingBrand
	}

	t := c.Thumbnail
	if t.MaxKB < 0 {
		return fmt.Errorf("thumbnail.max_kb must not be negative, got %d", t.MaxKB)
	}
	if t.MaxWidth < 1 || t.MaxHeight < 1 {
		return fmt.Errorf("thumbnail max size must be positive, got %dx%d", t.MaxWidth, t.MaxHeight)
	}
	for name, quality := range map[string]int{
		"thumbnail.start_quality": t.StartQuality,
		"thumbnail.final_quality": t.FinalQuality,
	} {
		if quality < 1 || quality > pipeline.MaxQuality {
			return fmt.Errorf("%s must be within 1..%d, got %d", name, pipeline.MaxQuality, quality)
		}
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	return nil
}
