package contract

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrNoContract is returned when no Bean contract is configured for a chain.
var ErrNoContract = errors.New("no contract configured for chain")

//go:embed data.json
var packagedConfig []byte

var validate = validator.New()

// Config locates the Bean contract on one chain.
type Config struct {
	Address string          `json:"address" validate:"required,eth_addr"`
	ABI     json.RawMessage `json:"abi" validate:"required"`
}

// Parsed returns the decoded ABI.
func (c Config) Parsed() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(string(c.ABI)))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parsing ABI: %w", err)
	}
	return parsed, nil
}

// Configs maps a decimal chain id to its contract.
type Configs map[string]Config

// For returns the contract for chainID.
func (c Configs) For(chainID int64) (Config, error) {
	cfg, ok := c[strconv.FormatInt(chainID, 10)]
	if !ok {
		return Config{}, fmt.Errorf("%w %d", ErrNoContract, chainID)
	}
	return cfg, nil
}

// ChainIDs returns the configured chain ids in ascending order.
func (c Configs) ChainIDs() []int64 {
	ids := make([]int64, 0, len(c))
	for k := range c {
		if id, err := strconv.ParseInt(k, 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// overrideEntry is one chain in contracts.yaml. ABI may be any YAML
// structure that re-encodes to a JSON ABI array.
type overrideEntry struct {
	Address string `yaml:"address"`
	ABI     any    `yaml:"abi"`
}

// LoadConfigs returns the packaged contract table, with entries from the YAML
// file at overridePath merged on top when that file exists.
func LoadConfigs(overridePath string) (Configs, error) {
	cfgs := Configs{}
	if err := json.Unmarshal(packagedConfig, &cfgs); err != nil {
		return nil, fmt.Errorf("parsing packaged contracts: %w", err)
	}

	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", overridePath, err)
		default:
			if err := cfgs.merge(data); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", overridePath, err)
			}
		}
	}

	for id, cfg := range cfgs {
		if err := validate.Struct(cfg); err != nil {
			return nil, fmt.Errorf("contract for chain %s: %w", id, err)
		}
		if _, err := cfg.Parsed(); err != nil {
			return nil, fmt.Errorf("contract for chain %s: %w", id, err)
		}
	}
	return cfgs, nil
}

func (c Configs) merge(data []byte) error {
	var entries map[string]overrideEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return err
	}
	for id, e := range entries {
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			return fmt.Errorf("chain id %q is not a number", id)
		}
		cfg := c[id]
		if e.Address != "" {
			cfg.Address = e.Address
		}
		if e.ABI != nil {
			raw, err := json.Marshal(e.ABI)
			if err != nil {
				return fmt.Errorf("chain %s abi: %w", id, err)
			}
			cfg.ABI = raw
		}
		if len(cfg.ABI) == 0 {
			cfg.ABI = json.RawMessage(BeanABI)
		}
		c[id] = cfg
	}
	return nil
}
