package server

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"firstperson/scene"
)

// LogConfig 日志输出配置
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TickConfig 会话 Tick 参数；移动/转向速度为编译期常量，不在此配置
type TickConfig struct {
	TicksPerSecond   int     `yaml:"ticks_per_second"`
	MaxDeltaSeconds  float64 `yaml:"max_delta_seconds"`
	MaxInputsPerTick int     `yaml:"max_inputs_per_tick"`
}

// Config 服务配置（YAML）
type Config struct {
	Addr         string     `yaml:"addr"`
	DefaultScene string     `yaml:"default_scene"`
	Log          LogConfig  `yaml:"log"`
	Tick         TickConfig `yaml:"tick"`
}

// DefaultConfig 默认配置：60 TPS，单帧最多积分 0.25 秒
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		DefaultScene: scene.DefaultPreset,
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Tick: TickConfig{
			TicksPerSecond:   60,
			MaxDeltaSeconds:  0.25,
			MaxInputsPerTick: 32,
		},
	}
}

// LoadConfig 读取 YAML 并覆盖默认值；path 为空时直接返回默认配置
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Tick.TicksPerSecond <= 0 {
		return errors.New("tick.ticks_per_second must be positive")
	}
	if c.Tick.MaxDeltaSeconds <= 0 {
		return errors.New("tick.max_delta_seconds must be positive")
	}
	if c.Tick.MaxInputsPerTick <= 0 {
		return errors.New("tick.max_inputs_per_tick must be positive")
	}
	if _, err := scene.LookupPreset(c.DefaultScene); err != nil {
		return fmt.Errorf("default_scene: %w", err)
	}
	return nil
}
