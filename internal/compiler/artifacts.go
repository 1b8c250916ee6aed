package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactDir reads contracts already built by Hardhat (artifacts/) or
// Foundry (out/). Each artifact lives at <dir>/.../<File>.sol/<Name>.json and
// is keyed "<File>.sol:<Name>".
type ArtifactDir struct {
	Dir string
}

// Compile collects the artifacts built from the given source files. With no
// paths every artifact under Dir is returned. Interfaces and abstract
// contracts (no bytecode) are left out.
func (a ArtifactDir) Compile(ctx context.Context, paths []string) (map[string]Output, error) {
	wanted := make(map[string]bool, len(paths))
	for _, p := range paths {
		wanted[filepath.Base(p)] = true
	}

	out := make(map[string]Output)
	err := filepath.WalkDir(a.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}
		source := filepath.Base(filepath.Dir(path))
		if len(wanted) > 0 && !wanted[source] {
			return nil
		}

		art, err := loadArtifact(path)
		if err != nil || art == nil {
			return err
		}
		out[source+":"+strings.TrimSuffix(d.Name(), ".json")] = *art
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading artifacts in %s: %w", a.Dir, err)
	}
	return out, nil
}

// loadArtifact parses a Hardhat or Foundry artifact. It returns nil, nil for
// JSON files that are not deployable artifacts.
func loadArtifact(path string) (*Output, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read artifact file: %w", err)
	}

	var raw struct {
		ABI      json.RawMessage `json:"abi"`
		Bytecode json.RawMessage `json:"bytecode"`
	}
	if json.Unmarshal(data, &raw) != nil {
		return nil, nil
	}
	if len(raw.ABI) < 2 || raw.ABI[0] != '[' || len(raw.Bytecode) == 0 {
		return nil, nil
	}

	bin, err := extractBytecodeHex(raw.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if bin == "" || bin == "0x" {
		return nil, nil
	}
	if !strings.HasPrefix(bin, "0x") {
		bin = "0x" + bin
	}
	return &Output{ABI: []byte(raw.ABI), Bin: bin}, nil
}

// extractBytecodeHex handles the two common artifact formats:
//   - Hardhat:  "bytecode": "0x608060..."          (JSON string)
//   - Foundry:  "bytecode": {"object": "0x608060..."} (JSON object)
func extractBytecodeHex(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return strings.TrimSpace(str), nil
	}

	var obj struct {
		Object string `json:"object"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Object), nil
	}

	return "", fmt.Errorf("bytecode field is neither a hex string nor a {\"object\":\"0x...\"} object")
}
