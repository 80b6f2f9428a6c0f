// Package config loads the server configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written in the
// usual "300ms" / "2s" form.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ServerConfig names the service and selects the transport.
type ServerConfig struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	HTTP     bool   `yaml:"http"`
	HTTPAddr string `yaml:"http_addr"`
}

// RobotConfig holds connection defaults for the controller.
type RobotConfig struct {
	DefaultHost      string   `yaml:"default_host"`
	DefaultPort      int      `yaml:"default_port"`
	DefaultTimeout   Duration `yaml:"default_timeout"`
	DefaultRobotName string   `yaml:"default_robot_name"`
	DefaultProvider  string   `yaml:"default_provider"`
	DefaultMachine   string   `yaml:"default_machine"`
}

// MotionConfig tunes motion pacing and gripper limits.
type MotionConfig struct {
	SettleShort  Duration `yaml:"settle_short"`
	SettleLong   Duration `yaml:"settle_long"`
	SlavePause   Duration `yaml:"slave_pause"`
	GripperMaxM  float64  `yaml:"gripper_max_m"`
	DefaultSpeed float64  `yaml:"default_speed"`
}

// OpLogConfig selects and sizes the operation log store.
type OpLogConfig struct {
	Backend  string `yaml:"backend"`
	Capacity int    `yaml:"capacity"`
	Path     string `yaml:"path"`
}

// Config is the root configuration document.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Robot  RobotConfig  `yaml:"robot"`
	Motion MotionConfig `yaml:"motion"`
	OpLog  OpLogConfig  `yaml:"oplog"`
}

// Operation log backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "bcapd",
			Version:  "dev",
			HTTPAddr: ":8080",
		},
		Robot: RobotConfig{
			DefaultHost:      "192.168.0.1",
			DefaultPort:      5007,
			DefaultTimeout:   Duration(3 * time.Second),
			DefaultRobotName: "Arm",
			DefaultProvider:  "CaoProv.DENSO.VRC",
			DefaultMachine:   "localhost",
		},
		Motion: MotionConfig{
			SettleShort:  Duration(300 * time.Millisecond),
			SettleLong:   Duration(500 * time.Millisecond),
			SlavePause:   Duration(100 * time.Millisecond),
			GripperMaxM:  0.03,
			DefaultSpeed: 50,
		},
		OpLog: OpLogConfig{
			Backend:  BackendMemory,
			Capacity: 1000,
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum fields and cross-field requirements.
func (c *Config) Validate() error {
	switch c.OpLog.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.OpLog.Path == "" {
			return errors.New("oplog: sqlite backend requires a path")
		}
	default:
		return errors.Errorf("oplog: unknown backend %q", c.OpLog.Backend)
	}
	if c.Robot.DefaultPort <= 0 || c.Robot.DefaultPort > 65535 {
		return errors.Errorf("robot: invalid default port %d", c.Robot.DefaultPort)
	}
	if c.Motion.GripperMaxM <= 0 {
		return errors.Errorf("motion: gripper_max_m must be positive, got %v", c.Motion.GripperMaxM)
	}
	if c.Server.HTTP && c.Server.HTTPAddr == "" {
		return errors.New("server: http enabled without http_addr")
	}
	return nil
}
