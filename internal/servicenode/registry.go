package servicenode

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Klingon-tech/klingnet-chain/internal/storage"
)

// DB key prefix for registry persistence.
var prefixRegistry = []byte("sn/")

// Registry tracks registered service nodes, keyed by hex-encoded public
// key. Shape lifted directly from internal/subchain/registry.go's
// map+sync.RWMutex+badger-persisted registry, generalized from sub-chain
// metadata keyed by ChainID to service-node metadata keyed by pubkey.
type Registry struct {
	nodes map[string]*Node
	mu    sync.RWMutex
}

// NewRegistry creates a new empty service-node registry.
func NewRegistry() *Registry {
	return &Registry{nodes: make(map[string]*Node)}
}

// Register adds a new service node to the registry.
func (r *Registry) Register(n *Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := n.Key()
	if _, exists := r.nodes[key]; exists {
		return fmt.Errorf("service node %s already registered", key)
	}
	r.nodes[key] = n
	return nil
}

// Get returns a registered node by its hex-encoded public key.
func (r *Registry) Get(pubKeyHex string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[pubKeyHex]
	return n, ok
}

// Unregister removes a node from the registry.
func (r *Registry) Unregister(pubKeyHex string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, pubKeyHex)
}

// Has checks if a node is registered.
func (r *Registry) Has(pubKeyHex string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.nodes[pubKeyHex]
	return ok
}

// List returns every registered node.
func (r *Registry) List() []*Node {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	return out
}

// Count returns the number of registered nodes.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// SetStake updates a node's locked stake in place, used when a stake
// output is confirmed or an unstake is spent.
func (r *Registry) SetStake(pubKeyHex string, stake uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[pubKeyHex]
	if !ok {
		return false
	}
	n.Stake = stake
	return true
}

// RequestUnlock marks a node as unlocking effective at unlockHeight.
func (r *Registry) RequestUnlock(pubKeyHex string, unlockHeight uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[pubKeyHex]
	if !ok {
		return false
	}
	n.RequestedUnlock = true
	n.UnlockHeight = unlockHeight
	return true
}

// PruneRemovable removes every node IsNodeRemovable considers removable at
// currentHeight and returns their keys.
func (r *Registry) PruneRemovable(currentHeight uint64) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for key, n := range r.nodes {
		if IsNodeRemovable(n, currentHeight) {
			removed = append(removed, key)
			delete(r.nodes, key)
		}
	}
	return removed
}

func registryKey(pubKeyHex string) []byte {
	key := make([]byte, len(prefixRegistry)+len(pubKeyHex))
	copy(key, prefixRegistry)
	copy(key[len(prefixRegistry):], pubKeyHex)
	return key
}

// SaveTo persists the registry to the given DB.
func (r *Registry) SaveTo(db storage.DB) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, n := range r.nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("marshal service node %s: %w", key, err)
		}
		if err := db.Put(registryKey(key), data); err != nil {
			return fmt.Errorf("save service node %s: %w", key, err)
		}
	}
	return nil
}

// DeleteFrom removes a single node entry from the DB.
func (r *Registry) DeleteFrom(db storage.DB, pubKeyHex string) error {
	return db.Delete(registryKey(pubKeyHex))
}

// LoadRegistry loads the registry from the given DB.
func LoadRegistry(db storage.DB) (*Registry, error) {
	reg := NewRegistry()
	err := db.ForEach(prefixRegistry, func(key, value []byte) error {
		var n Node
		if err := json.Unmarshal(value, &n); err != nil {
			return fmt.Errorf("unmarshal service node: %w", err)
		}
		reg.nodes[n.Key()] = &n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return reg, nil
}
