package cmd

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ulordchain/ucwallet/internal/contract"
)

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, &contract.InvalidAddressError{Value: s}
	}
	return common.HexToAddress(s), nil
}

// parseWei reads a non-negative base-10 amount.
func parseWei(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is not a non-negative integer", contract.ErrValidation, s)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseAddressList reads a comma-separated address list.
func parseAddressList(s string) ([]common.Address, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty address list", contract.ErrValidation)
	}
	out := make([]common.Address, len(parts))
	for i, p := range parts {
		a, err := parseAddress(p)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

// parseAmountList reads a comma-separated list of integer amounts.
func parseAmountList(s string) ([]*big.Int, error) {
	parts := splitList(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty quantity list", contract.ErrValidation)
	}
	out := make([]*big.Int, len(parts))
	for i, p := range parts {
		v, err := parseWei(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
