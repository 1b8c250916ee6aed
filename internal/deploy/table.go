package deploy

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// AddressTable maps logical names (contracts, account aliases and "self")
// to addresses. Entries are only ever added or replaced during a run.
type AddressTable struct {
	addrs map[string]common.Address
}

// NewAddressTable returns a table holding self and the configured account
// aliases. An alias whose value is "self" resolves to self.
func NewAddressTable(self common.Address, accounts map[string]string) (*AddressTable, error) {
	t := &AddressTable{addrs: map[string]common.Address{SelfAlias: self}}
	for alias, value := range accounts {
		switch {
		case value == SelfAlias:
			t.addrs[alias] = self
		case common.IsHexAddress(value):
			t.addrs[alias] = common.HexToAddress(value)
		default:
			return nil, &ConfigError{Msg: fmt.Sprintf("account %q has invalid address %q", alias, value)}
		}
	}
	return t, nil
}

// Set records addr under name.
func (t *AddressTable) Set(name string, addr common.Address) {
	t.addrs[name] = addr
}

// Lookup returns the address recorded under name.
func (t *AddressTable) Lookup(name string) (common.Address, bool) {
	a, ok := t.addrs[name]
	return a, ok
}

// Names returns all names, sorted.
func (t *AddressTable) Names() []string {
	out := make([]string, 0, len(t.addrs))
	for n := range t.addrs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Substitute replaces every string equal to a known name with its address,
// descending into lists.
func (t *AddressTable) Substitute(v any) any {
	switch val := v.(type) {
	case string:
		if a, ok := t.addrs[val]; ok {
			return a
		}
		return val
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = t.Substitute(e)
		}
		return out
	}
	return v
}
