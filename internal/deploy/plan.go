// Package deploy compiles, deploys and activates an ordered set of contracts
// described by a deployment configuration file.
package deploy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

// ErrConfig is matched by every ConfigError.
var ErrConfig = errors.New("deployment configuration error")

// SelfAlias names the active account in account_address and in arguments.
const SelfAlias = "self"

// legacyActivateFunction is called when an activate entry is a plain list of names.
const legacyActivateFunction = "mulInsertWhite"

// ConfigError is a problem in the deployment configuration or in what it
// refers to. Contract is empty for file-level problems.
type ConfigError struct {
	Contract string
	Msg      string
	Err      error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Contract != "" {
		msg = e.Contract + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is makes ConfigError match ErrConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ContractSpec is one entry of the deploy section: either a literal address
// of an already deployed contract, or the constructor arguments to deploy it
// with. Args hold decoded JSON values (json.Number, string, bool, []any).
type ContractSpec struct {
	Name            string
	SourcePath      string
	Literal         *common.Address
	DependencyNames []string
	Args            []any
}

// Call is one activation transaction.
type Call struct {
	Contract string
	Function string
	Args     []any
}

// Plan is a parsed deployment configuration.
type Plan struct {
	Order       []string
	Accounts    map[string]string
	Specs       map[string]ContractSpec
	Activations []Call
}

// SourcePaths returns <sources>/<name>.sol for every contract, in order.
func (p *Plan) SourcePaths() []string {
	out := make([]string, len(p.Order))
	for i, name := range p.Order {
		out[i] = p.Specs[name].SourcePath
	}
	return out
}

// LoadPlan reads and parses a deployment configuration file.
func LoadPlan(path, sourcesDir string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: "reading " + path, Err: err}
	}
	return ParsePlan(data, sourcesDir)
}

// ParsePlan parses a deployment configuration:
//
//	{"deploy": {"sortkeys": [...], "account_address": {...}, "<name>": ...},
//	 "activate": {"<name>": {"<function>": [[args...], ...]}}}
func ParsePlan(data []byte, sourcesDir string) (*Plan, error) {
	var root struct {
		Deploy   map[string]json.RawMessage `json:"deploy"`
		Activate json.RawMessage            `json:"activate"`
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, &ConfigError{Msg: "invalid configuration JSON", Err: err}
	}

	plan := &Plan{
		Accounts: make(map[string]string),
		Specs:    make(map[string]ContractSpec),
	}
	if err := plan.parseDeploy(root.Deploy, sourcesDir); err != nil {
		return nil, err
	}
	if err := plan.parseActivate(root.Activate); err != nil {
		return nil, err
	}
	return plan, nil
}

func (p *Plan) parseDeploy(section map[string]json.RawMessage, sourcesDir string) error {
	if section == nil {
		return nil
	}

	if raw, ok := section["sortkeys"]; ok {
		if err := json.Unmarshal(raw, &p.Order); err != nil {
			return &ConfigError{Msg: `"sortkeys" must be a list of contract names`, Err: err}
		}
	}
	if raw, ok := section["account_address"]; ok {
		if err := json.Unmarshal(raw, &p.Accounts); err != nil {
			return &ConfigError{Msg: `"account_address" must map names to addresses`, Err: err}
		}
		for alias, addr := range p.Accounts {
			if addr != SelfAlias && !common.IsHexAddress(addr) {
				return &ConfigError{Msg: fmt.Sprintf("account %q has invalid address %q", alias, addr)}
			}
		}
	}

	seen := make(map[string]bool, len(p.Order))
	for _, name := range p.Order {
		if seen[name] {
			return &ConfigError{Contract: name, Msg: "listed twice in sortkeys"}
		}
		seen[name] = true

		raw, ok := section[name]
		if !ok {
			return &ConfigError{Contract: name, Msg: "missing from the deploy section"}
		}
		spec, err := parseSpec(name, raw)
		if err != nil {
			return err
		}
		spec.SourcePath = filepath.Join(sourcesDir, name+".sol")
		p.Specs[name] = spec
	}
	return nil
}

func parseSpec(name string, raw json.RawMessage) (ContractSpec, error) {
	spec := ContractSpec{Name: name}

	var literal string
	if json.Unmarshal(raw, &literal) == nil {
		if !common.IsHexAddress(literal) {
			return spec, &ConfigError{Contract: name, Msg: fmt.Sprintf("%q is not an address", literal)}
		}
		addr := common.HexToAddress(literal)
		spec.Literal = &addr
		return spec, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
		return spec, &ConfigError{Contract: name, Msg: "expected an address or [[dependencies...], [arguments...]]"}
	}
	if err := json.Unmarshal(parts[0], &spec.DependencyNames); err != nil {
		return spec, &ConfigError{Contract: name, Msg: "dependencies must be a list of names", Err: err}
	}
	if err := decodeNumbers(parts[1], &spec.Args); err != nil {
		return spec, &ConfigError{Contract: name, Msg: "arguments must be a list", Err: err}
	}
	return spec, nil
}

// parseActivate keeps the order of the file: contracts, then functions,
// then argument lists.
func (p *Plan) parseActivate(section json.RawMessage) error {
	if len(section) == 0 || string(section) == "null" {
		return nil
	}
	contracts, entries, err := objectKeys(section)
	if err != nil {
		return &ConfigError{Msg: `"activate" must map contract names to calls`, Err: err}
	}

	for _, name := range contracts {
		raw := entries[name]

		var names []string
		if json.Unmarshal(raw, &names) == nil {
			args := make([]any, len(names))
			for i, n := range names {
				args[i] = n
			}
			p.Activations = append(p.Activations, Call{Contract: name, Function: legacyActivateFunction, Args: []any{args}})
			continue
		}

		fnames, funcs, err := objectKeys(raw)
		if err != nil {
			return &ConfigError{Contract: name, Msg: "activate entry must be a list of names or {function: [[args...], ...]}", Err: err}
		}

		for _, fn := range fnames {
			var tuples [][]any
			if err := decodeNumbers(funcs[fn], &tuples); err != nil {
				return &ConfigError{Contract: name, Msg: fmt.Sprintf("%s: expected a list of argument lists", fn), Err: err}
			}
			for _, args := range tuples {
				p.Activations = append(p.Activations, Call{Contract: name, Function: fn, Args: args})
			}
		}
	}
	return nil
}

// objectKeys splits a JSON object into its keys, in document order, and
// their raw values. A repeated key keeps its first position and last value.
func objectKeys(raw json.RawMessage) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected an object, got %v", tok)
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	return keys, values, nil
}

// decodeNumbers keeps integers exact as json.Number.
func decodeNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
