package contract

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func params(types ...string) []ABIParam {
	out := make([]ABIParam, len(types))
	for i, t := range types {
		out[i] = ABIParam{Type: t}
	}
	return out
}

func mustType(t *testing.T, typ string) abi.Type {
	t.Helper()
	ty, err := abi.NewType(typ, "", nil)
	require.NoError(t, err)
	return ty
}

// ---------------------------------------------------------------------------
// Coerce
// ---------------------------------------------------------------------------

func TestCoerceUint256(t *testing.T) {
	got, err := Coerce([]string{"123"}, params("uint256"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, big.NewInt(123).Cmp(got[0].(*big.Int)))
}

func TestCoerceSizedIntegers(t *testing.T) {
	got, err := Coerce([]string{"255", "-5", "70000", "18446744073709551615"}, params("uint8", "int16", "uint32", "uint64"))
	require.NoError(t, err)
	assert.Equal(t, []any{uint8(255), int16(-5), uint32(70000), uint64(18446744073709551615)}, got)
}

func TestCoerceIntegerRange(t *testing.T) {
	for _, tc := range []struct{ tok, typ string }{
		{"256", "uint8"},
		{"-1", "uint256"},
		{"128", "int8"},
		{"-129", "int8"},
		{"0x10", "uint256"},
		{"12abc", "uint256"},
	} {
		_, err := Coerce([]string{tc.tok}, params(tc.typ))
		assert.True(t, errors.Is(err, ErrValidation), "%s as %s", tc.tok, tc.typ)
	}
}

func TestCoerceInt256Negative(t *testing.T) {
	got, err := Coerce([]string{"-42"}, params("int256"))
	require.NoError(t, err)
	assert.Equal(t, int64(-42), got[0].(*big.Int).Int64())
}

func TestCoerceBool(t *testing.T) {
	tests := map[string]bool{
		"true": true, "True": true, "1": true, "yes": true, "y": true, "on": true,
		"false": false, "FALSE": false, "0": false, "no": false, "n": false, "off": false,
	}
	for tok, want := range tests {
		got, err := Coerce([]string{tok}, params("bool"))
		require.NoError(t, err, tok)
		assert.Equal(t, want, got[0], tok)
	}
}

func TestCoerceBoolInvalid(t *testing.T) {
	_, err := Coerce([]string{"maybe"}, params("bool"))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCoerceAddressChecksums(t *testing.T) {
	got, err := Coerce([]string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"}, params("address"))
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", got[0].(common.Address).Hex())
}

func TestCoerceAddressTooShort(t *testing.T) {
	_, err := Coerce([]string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb9226"}, params("address"))
	require.Error(t, err)

	var addrErr *InvalidAddressError
	require.True(t, errors.As(err, &addrErr))
	assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb9226", addrErr.Value)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCoerceArrayRejectedRegardlessOfCount(t *testing.T) {
	_, err := Coerce([]string{"1", "2"}, params("uint256[]"))
	assert.True(t, errors.Is(err, ErrArrayUnsupported))

	_, err = Coerce(nil, params("address", "uint256[3]"))
	assert.True(t, errors.Is(err, ErrArrayUnsupported))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCoerceArity(t *testing.T) {
	_, err := Coerce([]string{"1"}, params("uint256", "address"))
	require.Error(t, err)

	var arity *ArityError
	require.True(t, errors.As(err, &arity))
	assert.Equal(t, 2, arity.Want)
	assert.Equal(t, 1, arity.Got)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCoerceBytes(t *testing.T) {
	got, err := Coerce([]string{"0xdeadbeef", "plain", "0x01"}, params("bytes", "bytes", "bytes4"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, got[0])
	assert.Equal(t, []byte("plain"), got[1])
	assert.Equal(t, [4]byte{0x01, 0, 0, 0}, got[2])
}

func TestCoerceFixedBytesTooLong(t *testing.T) {
	_, err := Coerce([]string{"0x0102030405"}, params("bytes4"))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCoercePassThrough(t *testing.T) {
	got, err := Coerce([]string{"hello"}, params("string"))
	require.NoError(t, err)
	assert.Equal(t, []any{"hello"}, got)
}

func TestCoerceEmpty(t *testing.T) {
	got, err := Coerce(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCoercedValuesPack(t *testing.T) {
	dc := tokenContract(t)
	fn, _ := dc.Function("transfer")

	args, err := Coerce([]string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", "1000"}, fn.Inputs)
	require.NoError(t, err)
	data, err := dc.ABI.Pack("transfer", args...)
	require.NoError(t, err)
	assert.Equal(t, "0xa9059cbb", fn.Selector())
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, data[:4])
	assert.Len(t, data, 4+64)
}

// ---------------------------------------------------------------------------
// ConvertValue
// ---------------------------------------------------------------------------

func TestConvertValueJSONNumber(t *testing.T) {
	v, err := ConvertValue(mustType(t, "uint256"), json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.(*big.Int).Int64())

	v, err = ConvertValue(mustType(t, "uint8"), json.Number("7"))
	require.NoError(t, err)
	assert.Equal(t, uint8(7), v)
}

func TestConvertValueHexInteger(t *testing.T) {
	v, err := ConvertValue(mustType(t, "uint256"), "0x10")
	require.NoError(t, err)
	assert.Equal(t, int64(16), v.(*big.Int).Int64())
}

func TestConvertValueFloat(t *testing.T) {
	v, err := ConvertValue(mustType(t, "uint256"), float64(1e6))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), v.(*big.Int).Int64())
}

func TestConvertValueAddressList(t *testing.T) {
	a := "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	b := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

	v, err := ConvertValue(mustType(t, "address[]"), []any{a, b})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{common.HexToAddress(a), b}, v)
}

func TestConvertValueFixedArray(t *testing.T) {
	v, err := ConvertValue(mustType(t, "uint8[2]"), []any{json.Number("1"), "2"})
	require.NoError(t, err)
	assert.Equal(t, [2]uint8{1, 2}, v)

	_, err = ConvertValue(mustType(t, "uint8[2]"), []any{json.Number("1")})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestConvertValueTypeMismatch(t *testing.T) {
	_, err := ConvertValue(mustType(t, "uint256"), true)
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ConvertValue(mustType(t, "uint256"), []any{"1"})
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ConvertValue(mustType(t, "address"), "nope")
	var addrErr *InvalidAddressError
	assert.True(t, errors.As(err, &addrErr))
}

func TestConvertValueAddressToOtherTypes(t *testing.T) {
	a := common.HexToAddress("0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266")

	v, err := ConvertValue(mustType(t, "string"), a)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", v)

	v, err = ConvertValue(mustType(t, "bytes"), a)
	require.NoError(t, err)
	assert.Equal(t, a.Bytes(), v)

	v, err = ConvertValue(mustType(t, "address"), a)
	require.NoError(t, err)
	assert.Equal(t, a, v)

	_, err = ConvertValue(mustType(t, "bool"), a)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestConvertArgs(t *testing.T) {
	dc := tokenContract(t)
	args, err := ConvertArgs(dc.ABI.Constructor.Inputs, []any{tokenAddr.Hex(), json.Number("42")})
	require.NoError(t, err)

	packed, err := dc.ABI.Pack("", args...)
	require.NoError(t, err)
	assert.Len(t, packed, 64)

	_, err = ConvertArgs(dc.ABI.Constructor.Inputs, []any{tokenAddr.Hex()})
	var arity *ArityError
	assert.True(t, errors.As(err, &arity))
}
