package types

import (
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// BigInt is a big.Int wrapper which marshals JSON to a string representation of
// the big number. Note that a nil pointer value marshals as the empty string.
type BigInt big.Int

// NewInt creates a new BigInt from the given integer value.
func NewInt(x int) *BigInt {
	return new(BigInt).SetInt(x)
}

// MarshalText returns the decimal string representation of the big number.
// If the receiver is nil, we return "0".
func (i *BigInt) MarshalText() ([]byte, error) {
	if i == nil {
		return []byte("0"), nil
	}
	return (*big.Int)(i).MarshalText()
}

// UnmarshalText parses the text representation into the big number.
func (i *BigInt) UnmarshalText(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	return (*big.Int)(i).UnmarshalText(data)
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// It supports both string and numeric JSON representations.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	if i == nil {
		return fmt.Errorf("cannot unmarshal into nil BigInt")
	}
	// If it's a string representation (with double quotes)
	if len(data) > 0 && data[0] == '"' {
		return i.UnmarshalText(data[1 : len(data)-1])
	}
	// If it's a numeric representation (without quotes)
	return i.UnmarshalText(data)
}

// MarshalCBOR explicitly encodes BigInt as a CBOR text string.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	txt, err := i.MarshalText()
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(string(txt))
}

// UnmarshalCBOR decodes a CBOR text string into BigInt.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cbor.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}

// String returns the string representation of the big number.
func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// SetBytes interprets buf as big-endian unsigned integer.
func (i *BigInt) SetBytes(buf []byte) *BigInt {
	return (*BigInt)(i.MathBigInt().SetBytes(buf))
}

// Bytes returns the bytes representation of the big number.
func (i *BigInt) Bytes() []byte {
	return (*big.Int)(i).Bytes()
}

// MathBigInt converts i to a math/big *Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// Add sum x+y
func (i *BigInt) Add(x, y *BigInt) *BigInt {
	return (*BigInt)(i.MathBigInt().Add(x.MathBigInt(), y.MathBigInt()))
}

// Sub subs x-y
func (i *BigInt) Sub(x, y *BigInt) *BigInt {
	return (*BigInt)(i.MathBigInt().Sub(x.MathBigInt(), y.MathBigInt()))
}

// SetUint64 sets the value of x to the big number.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	return (*BigInt)(i.MathBigInt().SetUint64(x))
}

// SetInt sets the value of x to the big number.
func (i *BigInt) SetInt(x int) *BigInt {
	return (*BigInt)(i.MathBigInt().SetUint64(uint64(x)))
}

// SetBigInt sets the value of x to the big number.
func (i *BigInt) SetBigInt(x *big.Int) *BigInt {
	return (*BigInt)(i.MathBigInt().Set(x))
}

// Cmp compares i and j and returns -1, 0 or 1.
func (i *BigInt) Cmp(j *BigInt) int {
	return i.MathBigInt().Cmp(j.MathBigInt())
}

// Equal helps us with go-cmp.
func (i *BigInt) Equal(j *BigInt) bool {
	if i == nil || j == nil {
		return (i == nil) == (j == nil)
	}
	return i.MathBigInt().Cmp(j.MathBigInt()) == 0
}
