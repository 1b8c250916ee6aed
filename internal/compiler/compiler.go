// Package compiler turns Solidity sources into ABI + bytecode pairs, either
// by running solc or by reading Hardhat/Foundry build artifacts.
package compiler

import (
	"context"
	"sort"
	"strings"
)

// Output is one compiled contract.
type Output struct {
	ABI []byte // JSON array
	Bin string // 0x-prefixed creation bytecode
}

// Compiler compiles a batch of source files. Keys of the result have the
// form "<source>:<ContractName>".
type Compiler interface {
	Compile(ctx context.Context, paths []string) (map[string]Output, error)
}

// Find returns the output whose key names contract name. Keys are visited in
// sorted order; a key ending in ":<name>" wins over one that merely ends
// with name.
func Find(outputs map[string]Output, name string) (string, Output, bool) {
	keys := make([]string, 0, len(outputs))
	for k := range outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.HasSuffix(k, ":"+name) {
			return k, outputs[k], true
		}
	}
	for _, k := range keys {
		if strings.HasSuffix(k, name) {
			return k, outputs[k], true
		}
	}
	return "", Output{}, false
}
