package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/0gfoundation/exchange-booth/internal/address"
)

type Config struct {
	Ledger  LedgerConfig
	Redis   RedisConfig
	Program ProgramConfig
	Oracle  OracleConfig
	Rent    RentConfig
	Server  ServerConfig
	Log     LogConfig
}

type LedgerConfig struct {
	// Backend is "memory" or "redis".
	Backend string `mapstructure:"backend"`
	// GenesisFile seeds an empty ledger with funded accounts, mints and
	// price accounts. Optional.
	GenesisFile string `mapstructure:"genesis_file"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

type ProgramConfig struct {
	ID           string `mapstructure:"id"`
	AddressSpace string `mapstructure:"address_space"`
}

type OracleConfig struct {
	// Kind is "account" (price accounts on the ledger) or "http".
	Kind      string  `mapstructure:"kind"`
	URL       string  `mapstructure:"url"`
	MaxAgeSec int64   `mapstructure:"max_age_sec"`
	RPS       float64 `mapstructure:"rps"`
}

type RentConfig struct {
	LamportsPerByteYear uint64 `mapstructure:"lamports_per_byte_year"`
	ExemptionThreshold  uint64 `mapstructure:"exemption_threshold"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// Operators are the wallets allowed to submit transactions. Submission
	// is disabled when empty.
	Operators []string `mapstructure:"operators"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("ledger.backend", "redis")
	v.SetDefault("redis.addr", "redis:6379")
	v.SetDefault("program.address_space", "ed25519")
	v.SetDefault("oracle.kind", "account")
	v.SetDefault("oracle.max_age_sec", 60)
	v.SetDefault("oracle.rps", 5)
	v.SetDefault("rent.lamports_per_byte_year", 3480)
	v.SetDefault("rent.exemption_threshold", 2)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicit env bindings
	bindings := map[string]string{
		"ledger.backend":              "LEDGER_BACKEND",
		"ledger.genesis_file":         "GENESIS_FILE",
		"redis.addr":                  "REDIS_ADDR",
		"redis.password":              "REDIS_PASSWORD",
		"program.id":                  "PROGRAM_ID",
		"program.address_space":       "ADDRESS_SPACE",
		"oracle.kind":                 "ORACLE_KIND",
		"oracle.url":                  "ORACLE_URL",
		"oracle.max_age_sec":          "ORACLE_MAX_AGE_SEC",
		"oracle.rps":                  "ORACLE_RPS",
		"rent.lamports_per_byte_year": "RENT_LAMPORTS_PER_BYTE_YEAR",
		"rent.exemption_threshold":    "RENT_EXEMPTION_THRESHOLD",
		"server.port":                 "PORT",
		"server.operators":            "OPERATOR_ADDRESSES",
		"log.development":             "LOG_DEVELOPMENT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Program.ID == "" {
		return fmt.Errorf("required config missing: PROGRAM_ID")
	}
	if _, err := address.Parse(c.Program.ID); err != nil {
		return fmt.Errorf("PROGRAM_ID: %w", err)
	}
	if _, err := address.SpaceByName(c.Program.AddressSpace); err != nil {
		return fmt.Errorf("ADDRESS_SPACE: %w", err)
	}
	switch c.Ledger.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("required config missing: REDIS_ADDR")
		}
	default:
		return fmt.Errorf("LEDGER_BACKEND: unknown backend %q", c.Ledger.Backend)
	}
	switch c.Oracle.Kind {
	case "account":
	case "http":
		if c.Oracle.URL == "" {
			return fmt.Errorf("required config missing: ORACLE_URL")
		}
		if c.Oracle.RPS <= 0 {
			return fmt.Errorf("ORACLE_RPS must be positive")
		}
	default:
		return fmt.Errorf("ORACLE_KIND: unknown oracle %q", c.Oracle.Kind)
	}
	if c.Oracle.MaxAgeSec <= 0 {
		return fmt.Errorf("ORACLE_MAX_AGE_SEC must be positive")
	}
	for _, op := range c.Server.Operators {
		if !common.IsHexAddress(op) {
			return fmt.Errorf("OPERATOR_ADDRESSES: invalid address %q", op)
		}
	}
	if c.Rent.LamportsPerByteYear == 0 || c.Rent.ExemptionThreshold == 0 {
		return fmt.Errorf("rent parameters must be positive")
	}
	return nil
}

// ProgramAddress returns the parsed program id. Load has validated it.
func (c *Config) ProgramAddress() address.Address {
	return address.MustParse(c.Program.ID)
}

// AddressSpace returns the configured derivation space. Load has validated it.
func (c *Config) AddressSpace() address.Space {
	s, _ := address.SpaceByName(c.Program.AddressSpace)
	return s
}

func (c *Config) OperatorAddresses() []common.Address {
	out := make([]common.Address, 0, len(c.Server.Operators))
	for _, op := range c.Server.Operators {
		out = append(out, common.HexToAddress(op))
	}
	return out
}
