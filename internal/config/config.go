// Package config loads the peer-evaluation pipeline's TOML configuration
// into a single immutable value. Nothing in this package is mutated after
// Load returns; every component constructor takes the pieces it needs
// explicitly instead of reaching for a package-level singleton.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration unmarshals from TOML strings like "168h" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the top-level, read-only configuration value.
type Config struct {
	System     System     `toml:"system"`
	Assignment Assignment `toml:"peer_assignment"`
	Data       Data       `toml:"data_processing"`
	Vancouver  Vancouver  `toml:"vancouver_algorithm"`
	Token      Token      `toml:"token"`
	Server     Server     `toml:"server"`
}

type System struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
	Dev      bool   `toml:"dev"`
}

type Assignment struct {
	AssignmentsPerStudent int    `toml:"assignments_per_student"`
	AllowSelfEvaluation   bool   `toml:"allow_self_evaluation"`
	BalanceMode           string `toml:"balance_mode"` // perfect | random | weighted
	RandomSeed            *int64 `toml:"random_seed"`
}

type Data struct {
	MaxScorePerQuestion int `toml:"max_score_per_question"`
}

// Vancouver holds the consensus/reputation engine parameters from spec.md §6.
type Vancouver struct {
	RMax           float64 `toml:"r_max"`
	VG             float64 `toml:"v_g"`
	Alpha          float64 `toml:"alpha"`
	N              int     `toml:"n"`
	NIterations    int     `toml:"n_iterations"`
	BasicPrecision float64 `toml:"basic_precision"`
	UseAllData     bool    `toml:"use_all_data"`
	Debias         bool    `toml:"debias"`
	AggregateByMedian bool `toml:"aggregate_by_median"`
}

type Token struct {
	Length     int `toml:"length"`
	ExpiryDays int `toml:"expiry_days"`
}

type Server struct {
	Port         string   `toml:"port"`
	JWTSecret    string   `toml:"jwt_secret"`
	AllowOrigins []string `toml:"allow_origins"`
}

// Default returns the baseline configuration used when no TOML file is
// supplied (matching spec.md §6's documented defaults).
func Default() Config {
	return Config{
		System: System{
			DBPath:   "./data/peereval.db",
			LogLevel: "info",
		},
		Assignment: Assignment{
			AssignmentsPerStudent: 2,
			AllowSelfEvaluation:   false,
			BalanceMode:           "perfect",
		},
		Data: Data{
			MaxScorePerQuestion: 20,
		},
		Vancouver: Vancouver{
			RMax:           1.0,
			VG:             1.0,
			Alpha:          0.1,
			N:              3,
			NIterations:    25,
			BasicPrecision: 0.0001,
			UseAllData:     true,
			Debias:         false,
		},
		Token: Token{
			Length:     32,
			ExpiryDays: 14,
		},
		Server: Server{
			Port:         "8080",
			JWTSecret:    "default-secret-change-in-production",
			AllowOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
	}
}

// Load reads and merges a TOML file over the documented defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the configuration-error class of spec.md §7: invalid
// values here are fatal at startup, never surfaced as request errors.
func (c Config) Validate() error {
	if c.Assignment.AssignmentsPerStudent <= 0 {
		return fmt.Errorf("config: peer_assignment.assignments_per_student must be >= 1")
	}
	switch c.Assignment.BalanceMode {
	case "perfect", "random", "weighted":
	default:
		return fmt.Errorf("config: unknown peer_assignment.balance_mode %q", c.Assignment.BalanceMode)
	}
	if c.Data.MaxScorePerQuestion <= 0 {
		return fmt.Errorf("config: data_processing.max_score_per_question must be positive")
	}
	if c.Vancouver.RMax <= 0 {
		return fmt.Errorf("config: vancouver_algorithm.R_max must be positive")
	}
	if c.Vancouver.VG <= 0 {
		return fmt.Errorf("config: vancouver_algorithm.v_G must be positive")
	}
	if c.Vancouver.Alpha < 0 || c.Vancouver.Alpha > 1 {
		return fmt.Errorf("config: vancouver_algorithm.alpha must be in [0, 1]")
	}
	if c.Vancouver.N <= 0 {
		return fmt.Errorf("config: vancouver_algorithm.N must be >= 1")
	}
	if c.Vancouver.NIterations <= 0 {
		return fmt.Errorf("config: vancouver_algorithm.n_iterations must be >= 1")
	}
	if c.Vancouver.BasicPrecision <= 0 {
		return fmt.Errorf("config: vancouver_algorithm.basic_precision must be positive")
	}
	if c.Token.Length < 16 {
		return fmt.Errorf("config: token.length must be >= 16 (128 bits of entropy)")
	}
	if c.Token.ExpiryDays <= 0 {
		return fmt.Errorf("config: token.expiry_days must be >= 1")
	}
	return nil
}
