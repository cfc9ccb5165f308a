package chain

import (
	"errors"
	"slices"
	"strings"
)

// ErrChainNotFound is returned when a chain is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// AcceptedChainIDs lists the networks the Bean contract is deployed on:
// Polygon Mumbai, Hardhat and Goerli.
var AcceptedChainIDs = []int64{80001, 31337, 5}

// IsAccepted reports whether purchases are supported on chain id.
func IsAccepted(id int64) bool {
	return slices.Contains(AcceptedChainIDs, id)
}

// Chain holds display metadata for a single EVM chain.
type Chain struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	Explorer       string   `json:"explorer,omitempty"`
	Testnet        bool     `json:"testnet"`
}

// Accepted reports whether the Bean contract is available on this chain.
func (c *Chain) Accepted() bool { return IsAccepted(c.ChainID) }

// TxURL links a transaction hash on the chain's explorer, or "" without one.
func (c *Chain) TxURL(hash string) string {
	if c.Explorer == "" {
		return ""
	}
	return strings.TrimRight(c.Explorer, "/") + "/tx/" + hash
}

// Registry is the chain registry.
type Registry struct {
	chains []Chain
	byName map[string]*Chain
	byID   map[int64]*Chain
}

// NewRegistry returns the registry of known chains.
func NewRegistry() *Registry {
	chains := allChains()
	r := &Registry{
		chains: chains,
		byName: make(map[string]*Chain, len(chains)),
		byID:   make(map[int64]*Chain, len(chains)),
	}
	for i := range r.chains {
		c := &r.chains[i]
		r.byName[c.Name] = c
		r.byID[c.ChainID] = c
	}
	return r
}

// All returns every chain in the registry.
func (r *Registry) All() []Chain {
	return r.chains
}

// GetByName finds a chain by its slug name (e.g. "goerli", "mumbai").
func (r *Registry) GetByName(name string) (*Chain, error) {
	c, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// GetByChainID finds a chain by its numeric chain ID.
func (r *Registry) GetByChainID(id int64) (*Chain, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return c, nil
}

// DisplayName returns the chain's name, or "chain <id>" for unknown ids.
func (r *Registry) DisplayName(id int64) string {
	if c, err := r.GetByChainID(id); err == nil {
		return c.DisplayName
	}
	return "chain " + formatID(id)
}

// --- chain data ---

func allChains() []Chain {
	return []Chain{
		{
			Name: "mumbai", DisplayName: "Polygon Mumbai", ChainID: 80001, NativeCurrency: "MATIC", Testnet: true,
			RPCs:     []string{"https://rpc-mumbai.maticvigil.com", "https://polygon-mumbai-bor-rpc.publicnode.com"},
			Explorer: "https://mumbai.polygonscan.com",
		},
		{
			Name: "hardhat", DisplayName: "Hardhat", ChainID: 31337, NativeCurrency: "ETH", Testnet: true,
			RPCs: []string{"http://127.0.0.1:8545"},
		},
		{
			Name: "goerli", DisplayName: "Goerli", ChainID: 5, NativeCurrency: "ETH", Testnet: true,
			RPCs:     []string{"https://ethereum-goerli-rpc.publicnode.com", "https://rpc.ankr.com/eth_goerli"},
			Explorer: "https://goerli.etherscan.io",
		},
		{
			Name: "ethereum", DisplayName: "Ethereum", ChainID: 1, NativeCurrency: "ETH",
			RPCs:     []string{"https://eth.llamarpc.com", "https://ethereum-rpc.publicnode.com"},
			Explorer: "https://etherscan.io",
		},
		{
			Name: "sepolia", DisplayName: "Sepolia", ChainID: 11155111, NativeCurrency: "ETH", Testnet: true,
			RPCs:     []string{"https://ethereum-sepolia-rpc.publicnode.com", "https://rpc.sepolia.org"},
			Explorer: "https://sepolia.etherscan.io",
		},
		{
			Name: "polygon", DisplayName: "Polygon", ChainID: 137, NativeCurrency: "POL",
			RPCs:     []string{"https://polygon-rpc.com", "https://polygon-bor-rpc.publicnode.com"},
			Explorer: "https://polygonscan.com",
		},
		{
			Name: "amoy", DisplayName: "Polygon Amoy", ChainID: 80002, NativeCurrency: "POL", Testnet: true,
			RPCs:     []string{"https://rpc-amoy.polygon.technology"},
			Explorer: "https://amoy.polygonscan.com",
		},
	}
}
