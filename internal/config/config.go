package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

const (
	defaultChainID   = 31337
	defaultAlgorithm = "fastest"
	defaultDebounce  = 1000
	defaultInterval  = 4
	defaultLogLevel  = "info"

	configFile    = "config.json"
	walletsFile   = "wallets.json"
	storageFile   = "storage.json"
	contractsFile = "contracts.yaml"
	logFile       = "beancli.log"

	// EnvConfigDir overrides the default config directory.
	EnvConfigDir = "BEAN_CONFIG_DIR"
)

var algorithms = []string{"fastest", "round-robin", "failover"}

// Load reads config from dir (or creates defaults). dir defaults to
// $BEAN_CONFIG_DIR, then ~/.beancli.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = os.Getenv(EnvConfigDir)
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".beancli")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	cfg := defaults(dir)

	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.configDir = dir
	if cfg.RPCs == nil {
		cfg.RPCs = make(map[string][]string)
	}
	if cfg.DebounceMS <= 0 {
		cfg.DebounceMS = defaultDebounce
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultInterval
	}

	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Set updates a single setting by its JSON key.
func (c *Config) Set(key, value string) error {
	switch key {
	case "default_wallet":
		c.DefaultWallet = value
	case "chain_id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("chain_id must be an integer: %w", err)
		}
		c.ChainID = id
	case "rpc_algorithm":
		if !slices.Contains(algorithms, value) {
			return fmt.Errorf("rpc_algorithm must be one of %s", strings.Join(algorithms, ", "))
		}
		c.RPCAlgorithm = value
	case "debounce_ms", "poll_interval":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		if key == "debounce_ms" {
			c.DebounceMS = n
		} else {
			c.PollInterval = n
		}
	case "log_level":
		c.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chainID int64, url string) error {
	if c.RPCs == nil {
		c.RPCs = make(map[string][]string)
	}
	key := chainKey(chainID)
	if slices.Contains(c.RPCs[key], url) {
		return fmt.Errorf("RPC %s already exists for chain %d", url, chainID)
	}
	c.RPCs[key] = append(c.RPCs[key], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chainID int64, url string) error {
	key := chainKey(chainID)
	rpcs := c.RPCs[key]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %d", url, chainID)
	}
	c.RPCs[key] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chainID int64) []string {
	return c.RPCs[chainKey(chainID)]
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is the wallet metadata file.
func (c *Config) WalletsPath() string { return filepath.Join(c.configDir, walletsFile) }

// ContractsPath is the optional contract config override.
func (c *Config) ContractsPath() string { return filepath.Join(c.configDir, contractsFile) }

// LogPath is where the CLI writes its structured log.
func (c *Config) LogPath() string { return filepath.Join(c.configDir, logFile) }

// Storage opens the key/value storage file in the config dir.
func (c *Config) Storage() *Storage {
	return NewStorage(filepath.Join(c.configDir, storageFile))
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		ChainID:      defaultChainID,
		RPCAlgorithm: defaultAlgorithm,
		DebounceMS:   defaultDebounce,
		PollInterval: defaultInterval,
		LogLevel:     defaultLogLevel,
		RPCs:         make(map[string][]string),
		configDir:    dir,
	}
}

func chainKey(id int64) string { return strconv.FormatInt(id, 10) }

func loadJSON[T any](path string) (*T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &zero, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
