/*
   This file handles the numeric type of a single pixel and the fixed byte width
   that goes with it.
*/

package dvid

import (
	"encoding/json"
	"fmt"
)

// PixelType is the closed set of numeric pixel encodings a pixel set can carry.
type PixelType uint8

const (
	T_int8 PixelType = iota
	T_uint8
	T_int16
	T_uint16
	T_int32
	T_uint32
	T_float
	T_double
)

var pixelTypeBytes = [...]int{
	T_int8:   1,
	T_uint8:  1,
	T_int16:  2,
	T_uint16: 2,
	T_int32:  4,
	T_uint32: 4,
	T_float:  4,
	T_double: 8,
}

var pixelTypeNames = [...]string{
	T_int8:   "int8",
	T_uint8:  "uint8",
	T_int16:  "int16",
	T_uint16: "uint16",
	T_int32:  "int32",
	T_uint32: "uint32",
	T_float:  "float",
	T_double: "double",
}

// Valid returns true if the pixel type is one of the known tags.
func (p PixelType) Valid() bool {
	return int(p) < len(pixelTypeBytes)
}

// Bytes returns the number of bytes used to store one pixel of this type.
// Unknown tags return 0.
func (p PixelType) Bytes() int {
	if !p.Valid() {
		return 0
	}
	return pixelTypeBytes[p]
}

// Signed returns true for the signed integer and floating point types.
func (p PixelType) Signed() bool {
	switch p {
	case T_int8, T_int16, T_int32, T_float, T_double:
		return true
	}
	return false
}

// Float returns true for the IEEE-754 types.
func (p PixelType) Float() bool {
	return p == T_float || p == T_double
}

func (p PixelType) String() string {
	if !p.Valid() {
		return fmt.Sprintf("pixeltype(%d)", uint8(p))
	}
	return pixelTypeNames[p]
}

// ParsePixelType returns the PixelType for a name such as "uint16".  The aliases
// "float32" and "float64" are accepted for "float" and "double".
func ParsePixelType(s string) (PixelType, error) {
	switch s {
	case "float32":
		return T_float, nil
	case "float64":
		return T_double, nil
	}
	for i, name := range pixelTypeNames {
		if name == s {
			return PixelType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pixel type %q", s)
}

// MarshalJSON implements the json.Marshaler interface.
func (p PixelType) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid pixel type %d", uint8(p))
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *PixelType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	pt, err := ParsePixelType(s)
	if err != nil {
		return err
	}
	*p = pt
	return nil
}

// UnmarshalText allows pixel types to be given by name in TOML and flags.
func (p *PixelType) UnmarshalText(text []byte) error {
	pt, err := ParsePixelType(string(text))
	if err != nil {
		return err
	}
	*p = pt
	return nil
}
