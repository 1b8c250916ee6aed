package contract

import (
	"errors"
	"fmt"
	"os"
	"sort"
)

// Errors.
var (
	ErrContractNotFound = errors.New("contract not found")
	ErrNoDeployment     = errors.New("no deployment found")
)

// Registry holds the deployed contracts known to the session: every stored
// ABI that also has an entry in the address file.
type Registry struct {
	store         *ArtifactStore
	addressesPath string
	contracts     map[string]*DeployedContract
}

// NewRegistry creates an empty Registry over store and the address file.
func NewRegistry(store *ArtifactStore, addressesPath string) *Registry {
	return &Registry{
		store:         store,
		addressesPath: addressesPath,
		contracts:     make(map[string]*DeployedContract),
	}
}

// Load rebuilds the contract set from disk and replaces the previous one.
// A missing address file leaves the registry empty and returns
// ErrNoDeployment. Addresses without an ABI are skipped; an unreadable ABI
// is reported but does not keep the other contracts from loading.
func (r *Registry) Load() error {
	next := make(map[string]*DeployedContract)

	addrs, err := ReadAddresses(r.addressesPath)
	if os.IsNotExist(err) {
		r.contracts = next
		return fmt.Errorf("%w: %s does not exist", ErrNoDeployment, r.addressesPath)
	}
	if err != nil {
		return err
	}

	names, err := r.store.ListABIs()
	if err != nil {
		return err
	}

	var errs []error
	for _, name := range names {
		addr, ok := addrs[name]
		if !ok {
			continue
		}
		data, err := r.store.ReadABI(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		dc, err := NewDeployedContract(name, addr, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("loading %s: %w", name, err))
			continue
		}
		next[name] = dc
	}

	r.contracts = next
	return errors.Join(errs...)
}

// Get returns a contract by name.
func (r *Registry) Get(name string) (*DeployedContract, error) {
	c, ok := r.contracts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, name)
	}
	return c, nil
}

// Names returns all contract names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.contracts))
	for name := range r.contracts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of loaded contracts.
func (r *Registry) Len() int { return len(r.contracts) }
