package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CROSSARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CROSSARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators retarget identities at deploy time without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "CROSSARB_LOG_LEVEL")

	setStr(&cfg.Coordinator.Address, "CROSSARB_COORDINATOR_ADDRESS")
	setStr(&cfg.Coordinator.Controller, "CROSSARB_COORDINATOR_CONTROLLER")
	setStr(&cfg.Coordinator.Coinbase, "CROSSARB_COORDINATOR_COINBASE")
	setStr(&cfg.Coordinator.WrappedNative, "CROSSARB_COORDINATOR_WRAPPED_NATIVE")
	setStr(&cfg.Coordinator.InitialDeposit, "CROSSARB_COORDINATOR_INITIAL_DEPOSIT")
	setStr(&cfg.Coordinator.PercentagePolicy, "CROSSARB_COORDINATOR_PERCENTAGE_POLICY")

	setStr(&cfg.Strategy.PairTable, "CROSSARB_STRATEGY_PAIR_TABLE")
	setUint64(&cfg.Strategy.ProposerPercentage, "CROSSARB_STRATEGY_PROPOSER_PERCENTAGE")

	setStr(&cfg.Stream.URL, "CROSSARB_STREAM_URL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
