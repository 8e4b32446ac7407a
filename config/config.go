package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Render   RenderConfig   `mapstructure:"render"`
	Viewport ViewportConfig `mapstructure:"viewport"`
	History  HistoryConfig  `mapstructure:"history"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RedisConfig 提示推理结果缓存
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// BackendConfig 推理后端的 websocket 地址，RequestTimeout 为 0 表示不限时。
// 后端只维护一个当前图像，MaxSessions 限制共用连接的会话数，0 表示不限。
type BackendConfig struct {
	URL            string        `mapstructure:"url"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxSessions    int           `mapstructure:"max_sessions"`
}

type RenderConfig struct {
	Incremental   bool    `mapstructure:"incremental"`
	MaskOpacity   float64 `mapstructure:"mask_opacity"`
	PromptOpacity float64 `mapstructure:"prompt_opacity"`
}

type ViewportConfig struct {
	CanvasWidth   int     `mapstructure:"canvas_width"`
	CanvasHeight  int     `mapstructure:"canvas_height"`
	ZoomIntensity float64 `mapstructure:"zoom_intensity"`
	ZoomStep      float64 `mapstructure:"zoom_step"`
	FPS           int     `mapstructure:"fps"`
}

type HistoryConfig struct {
	MaxRecords int `mapstructure:"max_records"`
}

type StorageConfig struct {
	ImageDir string `mapstructure:"image_dir"`
}

// LogConfig Level 为空时由 server.mode 决定，Encoding 为 json 或 console
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 使用默认配置路径加载配置
func New() *Config {
	cfg, err := Load("config.yaml")
	if err != nil {
		// 如果加载失败，返回默认配置
		return getDefaultConfig()
	}
	return cfg
}

// Default 内置默认配置
func Default() *Config { return getDefaultConfig() }

func setDefaults(v *viper.Viper) {
	d := getDefaultConfig()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.dial_timeout", d.Backend.DialTimeout)
	v.SetDefault("backend.request_timeout", d.Backend.RequestTimeout)
	v.SetDefault("backend.max_sessions", d.Backend.MaxSessions)

	v.SetDefault("render.incremental", d.Render.Incremental)
	v.SetDefault("render.mask_opacity", d.Render.MaskOpacity)
	v.SetDefault("render.prompt_opacity", d.Render.PromptOpacity)

	v.SetDefault("viewport.canvas_width", d.Viewport.CanvasWidth)
	v.SetDefault("viewport.canvas_height", d.Viewport.CanvasHeight)
	v.SetDefault("viewport.zoom_intensity", d.Viewport.ZoomIntensity)
	v.SetDefault("viewport.zoom_step", d.Viewport.ZoomStep)
	v.SetDefault("viewport.fps", d.Viewport.FPS)

	v.SetDefault("history.max_records", d.History.MaxRecords)

	v.SetDefault("storage.image_dir", d.Storage.ImageDir)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.encoding", d.Log.Encoding)
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			TTL:      24 * time.Hour,
		},
		Backend: BackendConfig{
			URL:            "ws://localhost:8000/rpc",
			DialTimeout:    5 * time.Second,
			RequestTimeout: 0,
			MaxSessions:    1,
		},
		Render: RenderConfig{
			Incremental:   true,
			MaskOpacity:   0.4,
			PromptOpacity: 0.7,
		},
		Viewport: ViewportConfig{
			CanvasWidth:   1280,
			CanvasHeight:  800,
			ZoomIntensity: 0.2,
			ZoomStep:      0.4,
			FPS:           30,
		},
		History: HistoryConfig{
			MaxRecords: 10,
		},
		Storage: StorageConfig{
			ImageDir: "./images",
		},
	}
}
