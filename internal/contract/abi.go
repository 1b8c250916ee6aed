package contract

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// ABIEntry is one ABI entry (function, event, etc.).
type ABIEntry struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
	Constant        bool       `json:"constant"`
	Payable         bool       `json:"payable"`
	Anonymous       bool       `json:"anonymous"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Components []ABIParam `json:"components,omitempty"`
}

// IsView reports whether the function can be answered with eth_call.
// Older compilers only set "constant"; newer ones only set stateMutability.
func (e ABIEntry) IsView() bool {
	if e.Type != "function" {
		return false
	}
	switch e.StateMutability {
	case "view", "pure":
		return true
	case "":
		return e.Constant
	}
	return false
}

// IsPayable reports whether the function accepts value.
func (e ABIEntry) IsPayable() bool {
	return e.StateMutability == "payable" || (e.StateMutability == "" && e.Payable)
}

// FunctionSpec is the shell's view of one contract function.
type FunctionSpec struct {
	Name    string
	Inputs  []ABIParam
	Outputs []ABIParam
	IsView  bool
	Payable bool
}

// Signature returns the canonical signature, e.g. "transfer(address,uint256)".
func (f FunctionSpec) Signature() string {
	types := make([]string, len(f.Inputs))
	for i, p := range f.Inputs {
		types[i] = canonicalType(p)
	}
	return f.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector computes the 4-byte selector of the function.
func (f FunctionSpec) Selector() string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(f.Signature()))
	return "0x" + hex.EncodeToString(h.Sum(nil)[:4])
}

// Usage renders the parameter list, e.g. "<to address> <amount uint256>".
func (f FunctionSpec) Usage() string {
	parts := make([]string, len(f.Inputs))
	for i, p := range f.Inputs {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("arg%d", i)
		}
		parts[i] = "<" + name + " " + p.Type + ">"
	}
	return strings.Join(parts, " ")
}

// canonicalType expands tuples into their component list.
func canonicalType(p ABIParam) string {
	if !strings.HasPrefix(p.Type, "tuple") {
		return p.Type
	}
	inner := make([]string, len(p.Components))
	for i, c := range p.Components {
		inner[i] = canonicalType(c)
	}
	return "(" + strings.Join(inner, ",") + ")" + strings.TrimPrefix(p.Type, "tuple")
}

// DeployedContract is a contract with a known address and ABI. It is built
// once per registry load and never mutated.
type DeployedContract struct {
	Name      string
	Address   common.Address
	ABI       abi.ABI
	functions map[string]FunctionSpec
	order     []string
}

// NewDeployedContract parses abiJSON and indexes its functions by name. When
// a name is overloaded the first declaration wins.
func NewDeployedContract(name string, addr common.Address, abiJSON []byte) (*DeployedContract, error) {
	entries, err := ParseABI(abiJSON)
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(bytes.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parsing ABI of %s: %w", name, err)
	}

	dc := &DeployedContract{
		Name:      name,
		Address:   addr,
		ABI:       parsed,
		functions: make(map[string]FunctionSpec),
	}
	for _, e := range entries {
		if e.Type != "function" {
			continue
		}
		if _, dup := dc.functions[e.Name]; dup {
			continue
		}
		dc.functions[e.Name] = FunctionSpec{
			Name:    e.Name,
			Inputs:  e.Inputs,
			Outputs: e.Outputs,
			IsView:  e.IsView(),
			Payable: e.IsPayable(),
		}
		dc.order = append(dc.order, e.Name)
	}
	sort.Strings(dc.order)
	return dc, nil
}

// Function returns the named function.
func (d *DeployedContract) Function(name string) (FunctionSpec, bool) {
	f, ok := d.functions[name]
	return f, ok
}

// FunctionNames returns all function names, sorted.
func (d *DeployedContract) FunctionNames() []string {
	return append([]string(nil), d.order...)
}

// EventName returns the name of the ABI event whose signature hash is topic.
func (d *DeployedContract) EventName(topic common.Hash) (string, bool) {
	ev, err := d.ABI.EventByID(topic)
	if err != nil {
		return "", false
	}
	return ev.Name, true
}

// ParseABI decodes a raw ABI JSON array and checks it describes something.
func ParseABI(data []byte) ([]ABIEntry, error) {
	var entries []ABIEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			return nil, fmt.Errorf("ABI is a JSON object, not an array; artifacts must be loaded through their \"abi\" key")
		}
		return nil, fmt.Errorf("invalid ABI JSON: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("ABI is empty")
	}
	for _, e := range entries {
		switch e.Type {
		case "function", "event", "constructor", "fallback", "receive":
			return entries, nil
		}
	}
	return nil, fmt.Errorf("ABI has %d entries but none are functions or events", len(entries))
}
