package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrValidation is matched by every parameter-conversion error.
var ErrValidation = errors.New("invalid parameters")

// ErrArrayUnsupported is returned for functions taking array parameters,
// which cannot be typed as whitespace-separated shell tokens.
var ErrArrayUnsupported = fmt.Errorf("%w: array parameters are not supported here, use the deploy configuration or a script", ErrValidation)

// ArityError reports a token count that does not match the inputs.
type ArityError struct {
	Want, Got int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("expected %d parameter(s), got %d", e.Want, e.Got)
}

// Is makes ArityError match ErrValidation.
func (e *ArityError) Is(target error) bool { return target == ErrValidation }

// InvalidAddressError reports a token that is not a hex address.
type InvalidAddressError struct {
	Value string
}

func (e *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address %q", e.Value)
}

// Is makes InvalidAddressError match ErrValidation.
func (e *InvalidAddressError) Is(target error) bool { return target == ErrValidation }

var (
	truthy = map[string]bool{"true": true, "t": true, "1": true, "yes": true, "y": true, "on": true}
	falsy  = map[string]bool{"false": true, "f": true, "0": true, "no": true, "n": true, "off": true}
)

// Coerce converts shell tokens into Go values that go-ethereum can pack for
// inputs. Array inputs are rejected before the token count is checked.
func Coerce(tokens []string, inputs []ABIParam) ([]any, error) {
	for _, in := range inputs {
		if isArrayType(in.Type) {
			return nil, fmt.Errorf("%w (parameter %q is %s)", ErrArrayUnsupported, in.Name, in.Type)
		}
	}
	if len(tokens) != len(inputs) {
		return nil, &ArityError{Want: len(inputs), Got: len(tokens)}
	}

	out := make([]any, len(inputs))
	for i, in := range inputs {
		t, err := abi.NewType(in.Type, "", nil)
		if err != nil {
			// unknown to the packer; let it report the mismatch
			out[i] = tokens[i]
			continue
		}
		v, err := fromString(t, tokens[i], false)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%s): %w", i+1, in.Type, err)
		}
		out[i] = v
	}
	return out, nil
}

// ConvertValue converts a decoded JSON value (string, json.Number, bool or
// nested []any) into the Go type go-ethereum packs for t. Integers may be
// decimal or 0x-prefixed hex.
func ConvertValue(t abi.Type, v any) (any, error) {
	switch val := v.(type) {
	case string:
		return fromString(t, val, true)
	case json.Number:
		return fromString(t, val.String(), true)
	case float64:
		return fromString(t, new(big.Float).SetFloat64(val).Text('f', 0), true)
	case bool:
		if t.T != abi.BoolTy {
			return nil, fmt.Errorf("%w: bool given for %s", ErrValidation, t.String())
		}
		return val, nil
	case common.Address:
		if t.T != abi.AddressTy {
			return fromString(t, val.Hex(), true)
		}
		return val, nil
	case []any:
		return convertList(t, val)
	}
	return v, nil
}

// ConvertArgs converts values for a whole argument list.
func ConvertArgs(args abi.Arguments, values []any) ([]any, error) {
	if len(values) != len(args) {
		return nil, &ArityError{Want: len(args), Got: len(values)}
	}
	out := make([]any, len(values))
	for i, arg := range args {
		v, err := ConvertValue(arg.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i+1, arg.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

func convertList(t abi.Type, vals []any) (any, error) {
	if t.T != abi.SliceTy && t.T != abi.ArrayTy {
		return nil, fmt.Errorf("%w: list given for %s", ErrValidation, t.String())
	}
	if t.T == abi.ArrayTy && len(vals) != t.Size {
		return nil, fmt.Errorf("%w: %s needs %d elements, got %d", ErrValidation, t.String(), t.Size, len(vals))
	}

	var out reflect.Value
	if t.T == abi.SliceTy {
		out = reflect.MakeSlice(t.GetType(), len(vals), len(vals))
	} else {
		out = reflect.New(t.GetType()).Elem()
	}
	for i, elem := range vals {
		conv, err := ConvertValue(*t.Elem, elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(conv))
	}
	return out.Interface(), nil
}

func fromString(t abi.Type, s string, allowHex bool) (any, error) {
	switch t.T {
	case abi.IntTy, abi.UintTy:
		return parseInteger(s, t.T == abi.IntTy, t.Size, allowHex)
	case abi.BoolTy:
		return parseBool(s)
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, &InvalidAddressError{Value: s}
		}
		return common.HexToAddress(s), nil
	case abi.BytesTy:
		if b, err := hexutil.Decode(s); err == nil {
			return b, nil
		}
		return []byte(s), nil
	case abi.FixedBytesTy:
		return fixedBytes(s, t)
	case abi.SliceTy, abi.ArrayTy:
		return nil, fmt.Errorf("%w (%s)", ErrArrayUnsupported, t.String())
	}
	return s, nil
}

// parseInteger follows go-ethereum's packing types: 8/16/32/64-bit integers
// map to the sized Go types, all other widths to *big.Int.
func parseInteger(s string, signed bool, bits int, allowHex bool) (any, error) {
	n, ok := new(big.Int), false
	if allowHex && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		n, ok = n.SetString(s[2:], 16)
	} else {
		n, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrValidation, s)
	}

	if signed {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(bits-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%w: %s out of range for int%d", ErrValidation, s, bits)
		}
	} else if n.Sign() < 0 || n.BitLen() > bits {
		return nil, fmt.Errorf("%w: %s out of range for uint%d", ErrValidation, s, bits)
	}

	switch {
	case signed && bits == 8:
		return int8(n.Int64()), nil
	case signed && bits == 16:
		return int16(n.Int64()), nil
	case signed && bits == 32:
		return int32(n.Int64()), nil
	case signed && bits == 64:
		return n.Int64(), nil
	case !signed && bits == 8:
		return uint8(n.Uint64()), nil
	case !signed && bits == 16:
		return uint16(n.Uint64()), nil
	case !signed && bits == 32:
		return uint32(n.Uint64()), nil
	case !signed && bits == 64:
		return n.Uint64(), nil
	}
	return n, nil
}

func parseBool(s string) (bool, error) {
	l := strings.ToLower(strings.TrimSpace(s))
	switch {
	case truthy[l]:
		return true, nil
	case falsy[l]:
		return false, nil
	}
	return false, fmt.Errorf("%w: %q is not a boolean", ErrValidation, s)
}

func fixedBytes(s string, t abi.Type) (any, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		b = []byte(s)
	}
	if len(b) > t.Size {
		return nil, fmt.Errorf("%w: %d bytes do not fit in %s", ErrValidation, len(b), t.String())
	}
	arr := reflect.New(t.GetType()).Elem()
	reflect.Copy(arr, reflect.ValueOf(b))
	return arr.Interface(), nil
}

func isArrayType(typ string) bool {
	return strings.HasSuffix(typ, "]")
}
