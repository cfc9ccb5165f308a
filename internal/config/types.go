package config

// Config holds all beancli configuration.
type Config struct {
	DefaultWallet string              `json:"default_wallet"`
	ChainID       int64               `json:"chain_id"`      // network the connector dials
	RPCAlgorithm  string              `json:"rpc_algorithm"` // "fastest" | "round-robin" | "failover"
	DebounceMS    int                 `json:"debounce_ms"`
	PollInterval  int                 `json:"poll_interval"` // seconds
	LogLevel      string              `json:"log_level"`     // zap level name
	RPCs          map[string][]string `json:"rpcs"`          // chain id -> custom RPC URLs

	// internal: config dir path used for Save()
	configDir string
}
