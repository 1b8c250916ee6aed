package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/common/compiler"
)

// ErrCompile is returned when solc fails or prints something unusable.
var ErrCompile = errors.New("compilation failed")

// Solc runs the solc binary with --combined-json.
type Solc struct {
	Path string   // binary, "solc" when empty
	Args []string // extra flags, e.g. --optimize
}

// Compile runs solc over paths in one batch.
func (s Solc) Compile(ctx context.Context, paths []string) (map[string]Output, error) {
	bin := s.Path
	if bin == "" {
		bin = "solc"
	}
	// go-ethereum's parser of pre-0.8 output also needs the natspec fields
	args := append([]string{"--combined-json", "abi,bin,userdoc,devdoc"}, s.Args...)
	args = append(args, paths...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrCompile, bin, msg)
	}

	contracts, err := compiler.ParseCombinedJSON(stdout.Bytes(), "", "", "", strings.Join(s.Args, " "))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing solc output: %v", ErrCompile, err)
	}

	out := make(map[string]Output, len(contracts))
	for key, c := range contracts {
		abiJSON, err := json.Marshal(c.Info.AbiDefinition)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding ABI of %s: %v", ErrCompile, key, err)
		}
		out[key] = Output{ABI: abiJSON, Bin: c.Code}
	}
	return out, nil
}
