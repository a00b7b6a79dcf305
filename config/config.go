// config loads the page configuration: board geometry, animation timings, and the server address.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"robogrid/grid_world"
	"robogrid/models"
	"robogrid/robot"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the only config kind this app reads.
const Kind = "PageConfig"

// ErrUnknownKind is returned when a config document declares some other kind.
var ErrUnknownKind = errors.New("unknown config kind")

// ErrInvalid is returned when a config value is out of its legal range.
var ErrInvalid = errors.New("invalid config")

// OuterConfig is the envelope of every config document: a kind selector and its definition.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// Keys are snake_case because viper lower-cases everything it reads.

// GridConfig describes the board.
type GridConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	CellWidth       int     `yaml:"cell_width"`
	CellHeight      int     `yaml:"cell_height"`
	ScanRow         int     `yaml:"scan_row"`
	MarkProbability float64 `yaml:"mark_probability"`
	// TransitionLength is the css transition on a cell's mark, used by headless runs.
	TransitionLength time.Duration `yaml:"transition_length"`
}

// RobotConfig describes the robot's animations.
type RobotConfig struct {
	StepDuration     time.Duration `yaml:"step_duration"`
	FlyPerUnit       time.Duration `yaml:"fly_per_unit"`
	FlyTurns         int           `yaml:"fly_turns"`
	FlourishDuration time.Duration `yaml:"flourish_duration"`
	FlourishColor    string        `yaml:"flourish_color"`
	BorderColor      string        `yaml:"border_color"`
}

// JokeConfig describes the delayed decorative animation.
type JokeConfig struct {
	// Trigger is the go-click count that schedules the joke.
	Trigger  int           `yaml:"trigger"`
	Delay    time.Duration `yaml:"delay"`
	Duration time.Duration `yaml:"duration"`
}

// ServerConfig is the listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// PageConfig is the full app configuration.
type PageConfig struct {
	Grid   GridConfig   `yaml:"grid"`
	Robot  RobotConfig  `yaml:"robot"`
	Joke   JokeConfig   `yaml:"joke"`
	Server ServerConfig `yaml:"server"`
}

// Default returns the configuration the page was designed with.
func Default() *PageConfig {
	rc := robot.DefaultConfig()
	return &PageConfig{
		Grid: GridConfig{
			Width:            grid_world.DefaultWidth,
			Height:           grid_world.DefaultHeight,
			CellWidth:        models.DefaultCellSize.W,
			CellHeight:       models.DefaultCellSize.H,
			ScanRow:          grid_world.DefaultScanRow,
			MarkProbability:  grid_world.DefaultMarkProbability,
			TransitionLength: 250 * time.Millisecond,
		},
		Robot: RobotConfig{
			StepDuration:     rc.StepDuration,
			FlyPerUnit:       rc.FlyPerUnit,
			FlyTurns:         rc.FlyTurns,
			FlourishDuration: rc.FlourishDuration,
			FlourishColor:    rc.FlourishColor,
			BorderColor:      rc.BorderColor,
		},
		Joke: JokeConfig{
			Trigger:  2,
			Delay:    5 * time.Second,
			Duration: 30 * time.Second,
		},
		Server: ServerConfig{
			Host: "",
			Port: "8080",
		},
	}
}

// CellSize returns the configured cell dimensions.
func (cfg *PageConfig) CellSize() models.CellSize {
	return models.CellSize{W: cfg.Grid.CellWidth, H: cfg.Grid.CellHeight}
}

// RobotConfig converts the robot section to the robot's own settings.
func (cfg *PageConfig) RobotConfig() robot.Config {
	return robot.Config{
		StepDuration:     cfg.Robot.StepDuration,
		FlyPerUnit:       cfg.Robot.FlyPerUnit,
		FlyTurns:         cfg.Robot.FlyTurns,
		FlourishDuration: cfg.Robot.FlourishDuration,
		FlourishColor:    cfg.Robot.FlourishColor,
		BorderColor:      cfg.Robot.BorderColor,
		CellSize:         cfg.CellSize(),
	}
}

// Addr is the server listen address.
func (cfg *PageConfig) Addr() string {
	return cfg.Server.Host + ":" + cfg.Server.Port
}

// Validate checks the values that would otherwise fault at runtime.
func (cfg *PageConfig) Validate() error {
	switch {
	case cfg.Grid.Width < 1 || cfg.Grid.Height < 1:
		return fmt.Errorf("%w: grid must be at least 1x1, got %dx%d", ErrInvalid, cfg.Grid.Width, cfg.Grid.Height)
	case cfg.Grid.CellWidth < 1 || cfg.Grid.CellHeight < 1:
		return fmt.Errorf("%w: cell size must be positive", ErrInvalid)
	case cfg.Grid.ScanRow < 0 || cfg.Grid.ScanRow >= cfg.Grid.Height:
		return fmt.Errorf("%w: scan row %d outside of %d rows", ErrInvalid, cfg.Grid.ScanRow, cfg.Grid.Height)
	case cfg.Grid.MarkProbability < 0 || cfg.Grid.MarkProbability > 1:
		return fmt.Errorf("%w: mark probability %v outside [0,1]", ErrInvalid, cfg.Grid.MarkProbability)
	case cfg.Joke.Trigger < 0:
		return fmt.Errorf("%w: joke trigger must not be negative", ErrInvalid)
	}
	return nil
}

// Load reads the config at path, or returns the defaults if no file exists there.
func Load(path string) (*PageConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return FromYaml(path)
}

// FromYaml reads the outer config with viper, then decodes its definition over the defaults,
// so a document need only name the values it changes.
func FromYaml(path string) (*PageConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))

	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if outerConfig.Kind != Kind {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownKind, outerConfig.Kind, path)
	}

	cfg := Default()
	if outerConfig.Def == nil {
		return cfg, nil
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	if err = yaml.Unmarshal(spec, cfg); err != nil {
		return nil, fmt.Errorf("decode %s def: %w", Kind, err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
