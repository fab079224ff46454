// Package config loads the prover core's configuration: DA/sequencer/
// prover endpoints, the sequencer and prover DA public keys, the L2
// sequencer public key, the proof-sampling policy, and storage locations.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the prover node core.
type Config struct {
	// DA chain endpoint.
	DAEndpoint string `yaml:"da_endpoint"`

	// Sequencer RPC endpoint.
	SequencerEndpoint string `yaml:"sequencer_endpoint"`

	// Prover service endpoint.
	ProverEndpoint string `yaml:"prover_endpoint"`

	// SequencerDAPublicKey identifies blobs posted by the sequencer on DA
	// (spec.md §4.1 "Blob classification").
	SequencerDAPublicKey []byte `yaml:"-"`

	// ProverDAPublicKey identifies blobs posted by the prover on DA.
	ProverDAPublicKey []byte `yaml:"-"`

	// SequencerPublicKey is the L2 sequencer key threaded into
	// apply_soft_batch and StateTransitionData (spec.md §4.2, §4.3).
	SequencerPublicKey []byte `yaml:"-"`

	// ProofSamplingNumber is N in "dispatch with probability 1/N"; 0 means
	// prove every eligible L1 block (spec.md §4.4).
	ProofSamplingNumber int `yaml:"proof_sampling_number"`

	// SkipProofSubmissionUntilL1 suppresses dispatch while the scan height
	// is below this threshold (spec.md §4.4, env SKIP_PROOF_SUBMISSION_UNTIL_L1).
	SkipProofSubmissionUntilL1 uint64 `yaml:"skip_proof_submission_until_l1"`

	// LedgerDataDir / StorageDataDir are the on-disk roots for the
	// cometbft-db-backed ledger and storage manager.
	LedgerDataDir  string `yaml:"ledger_data_dir"`
	StorageDataDir string `yaml:"storage_data_dir"`

	// DatabaseURL optionally enables the relational proof_data mirror
	// (spec.md §6 "External relational schema"). Empty disables it.
	DatabaseURL string `yaml:"-"`

	// Database connection pool tuning for the relational mirror.
	DatabaseMaxConns    int `yaml:"database_max_conns"`
	DatabaseMinConns    int `yaml:"database_min_conns"`
	DatabaseMaxIdleTime int `yaml:"database_max_idle_time_seconds"`
	DatabaseMaxLifetime int `yaml:"database_max_lifetime_seconds"`

	LogLevel string `yaml:"log_level"`

	// ListenAddr serves /health and /metrics (SPEC_FULL ambient stack).
	ListenAddr string `yaml:"listen_addr"`
}

// SequencerDAPublicKeyHex etc. are the hex-encoded YAML source fields for
// the []byte config values above, decoded in Load (the matching env vars
// are decoded directly).
type fileOverrides struct {
	Config                  `yaml:",inline"`
	SequencerDAPublicKeyHex string `yaml:"sequencer_da_public_key_hex"`
	ProverDAPublicKeyHex    string `yaml:"prover_da_public_key_hex"`
	SequencerPublicKeyHex   string `yaml:"sequencer_public_key_hex"`
	DatabaseURL             string `yaml:"database_url"`
}

// Load builds a Config from environment variables, optionally overlaid by
// a YAML file at path (if path is non-empty and exists).
func Load(path string) (*Config, error) {
	cfg := &Config{
		DAEndpoint:                 getEnv("DA_ENDPOINT", ""),
		SequencerEndpoint:          getEnv("SEQUENCER_ENDPOINT", ""),
		ProverEndpoint:             getEnv("PROVER_ENDPOINT", ""),
		ProofSamplingNumber:        getEnvInt("PROOF_SAMPLING_NUMBER", 0),
		SkipProofSubmissionUntilL1: getEnvUint64("SKIP_PROOF_SUBMISSION_UNTIL_L1", 0),
		LedgerDataDir:              getEnv("LEDGER_DATA_DIR", "./data/ledger"),
		StorageDataDir:             getEnv("STORAGE_DATA_DIR", "./data/storage"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:           getEnvInt("DATABASE_MAX_CONNS", 10),
		DatabaseMinConns:           getEnvInt("DATABASE_MIN_CONNS", 2),
		DatabaseMaxIdleTime:        getEnvInt("DATABASE_MAX_IDLE_TIME_SECONDS", 300),
		DatabaseMaxLifetime:        getEnvInt("DATABASE_MAX_LIFETIME_SECONDS", 3600),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		ListenAddr:                 getEnv("LISTEN_ADDR", ":8080"),
	}

	seqDAKey, err := decodeHexEnv("SEQUENCER_DA_PUBLIC_KEY")
	if err != nil {
		return nil, err
	}
	cfg.SequencerDAPublicKey = seqDAKey

	proverDAKey, err := decodeHexEnv("PROVER_DA_PUBLIC_KEY")
	if err != nil {
		return nil, err
	}
	cfg.ProverDAPublicKey = proverDAKey

	seqKey, err := decodeHexEnv("SEQUENCER_PUBLIC_KEY")
	if err != nil {
		return nil, err
	}
	cfg.SequencerPublicKey = seqKey

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var ov fileOverrides
	ov.Config = *cfg
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	*cfg = ov.Config
	if ov.DatabaseURL != "" {
		cfg.DatabaseURL = ov.DatabaseURL
	}
	if ov.SequencerDAPublicKeyHex != "" {
		if cfg.SequencerDAPublicKey, err = decodeHex(ov.SequencerDAPublicKeyHex); err != nil {
			return nil, fmt.Errorf("config: %s sequencer_da_public_key_hex: %w", path, err)
		}
	}
	if ov.ProverDAPublicKeyHex != "" {
		if cfg.ProverDAPublicKey, err = decodeHex(ov.ProverDAPublicKeyHex); err != nil {
			return nil, fmt.Errorf("config: %s prover_da_public_key_hex: %w", path, err)
		}
	}
	if ov.SequencerPublicKeyHex != "" {
		if cfg.SequencerPublicKey, err = decodeHex(ov.SequencerPublicKeyHex); err != nil {
			return nil, fmt.Errorf("config: %s sequencer_public_key_hex: %w", path, err)
		}
	}

	return cfg, nil
}

// Validate checks that the configuration is sufficient to run the core.
func (c *Config) Validate() error {
	var missing []string
	if c.DAEndpoint == "" {
		missing = append(missing, "DA_ENDPOINT")
	}
	if c.SequencerEndpoint == "" {
		missing = append(missing, "SEQUENCER_ENDPOINT")
	}
	if c.ProverEndpoint == "" {
		missing = append(missing, "PROVER_ENDPOINT")
	}
	if len(c.SequencerDAPublicKey) == 0 {
		missing = append(missing, "SEQUENCER_DA_PUBLIC_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %v", missing)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func decodeHexEnv(key string) ([]byte, error) {
	v := os.Getenv(key)
	if v == "" {
		return nil, nil
	}
	b, err := decodeHex(v)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return hex.DecodeString(s)
}
