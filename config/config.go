package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig YAML配置文件结构
type YAMLConfig struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Data struct {
		Dir    string `yaml:"dir"`
		Source string `yaml:"source"`
	} `yaml:"data"`

	Store struct {
		Path string `yaml:"path"`
	} `yaml:"store"`

	Sync struct {
		Tickers      []string `yaml:"tickers"`
		Interval     string   `yaml:"interval"`
		LookbackDays int      `yaml:"lookback_days"`
	} `yaml:"sync"`
}

// Config 服务配置
type Config struct {
	// HTTP 服务端口
	Port int

	// 日K缓存目录
	DataDir string

	// 默认数据源 (yahoo / eastmoney)
	Source string

	// 回测记录持久化文件，为空则不落盘
	StorePath string

	// 后台预热日K缓存的标的，"ticker" 或 "source:ticker"
	WatchTickers []string

	// 缓存刷新间隔
	RefreshInterval time.Duration

	// 预热回看天数
	LookbackDays int
}

// DefaultConfig 默认配置
var DefaultConfig = Config{
	Port:      19528,
	DataDir:   "data",
	Source:    "yahoo",
	StorePath: "data/runs.json",

	RefreshInterval: 6 * time.Hour,
	LookbackDays:    3 * 365,
}

// LoadFromFile 从YAML文件加载配置
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var yamlConfig YAMLConfig
	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	config := DefaultConfig

	if yamlConfig.Server.Port > 0 {
		config.Port = yamlConfig.Server.Port
	}
	if d := strings.TrimSpace(yamlConfig.Data.Dir); d != "" {
		config.DataDir = d
	}
	if s := strings.TrimSpace(yamlConfig.Data.Source); s != "" {
		config.Source = strings.ToLower(s)
	}
	if p := strings.TrimSpace(yamlConfig.Store.Path); p != "" {
		config.StorePath = p
	}

	for _, t := range yamlConfig.Sync.Tickers {
		if t = strings.TrimSpace(t); t != "" {
			config.WatchTickers = append(config.WatchTickers, t)
		}
	}
	if v := strings.TrimSpace(yamlConfig.Sync.Interval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("sync.interval 非法: %q", v)
		}
		config.RefreshInterval = d
	}
	if yamlConfig.Sync.LookbackDays > 0 {
		config.LookbackDays = yamlConfig.Sync.LookbackDays
	}

	return &config, nil
}

// GetConfig 获取配置 (优先级: 环境变量 > 配置文件 > 默认值)
func GetConfig(configPath string) *Config {
	config := DefaultConfig

	if configPath != "" {
		if cfg, err := LoadFromFile(configPath); err == nil {
			config = *cfg
		} else {
			fmt.Printf("警告: 无法加载配置文件 %s: %v\n", configPath, err)
		}
	}

	if port := getPort(); port > 0 {
		config.Port = port
	}
	if dir := os.Getenv("BASETRADER_DATA_DIR"); dir != "" {
		config.DataDir = dir
	}
	if p, ok := os.LookupEnv("BASETRADER_STORE"); ok {
		// 显式设为空串表示不落盘
		config.StorePath = strings.TrimSpace(p)
	}

	return &config
}

// getPort 读取 BASETRADER_PORT，非法值忽略
func getPort() int {
	v := strings.TrimSpace(os.Getenv("BASETRADER_PORT"))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 65535 {
		return 0
	}
	return n
}
