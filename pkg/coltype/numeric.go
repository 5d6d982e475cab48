// Package coltype implements the fixed-width numeric and time column
// types shared by dimensions and metrics.
package coltype

import (
	"math"
	"strconv"

	"github.com/viyadb/viyadb/pkg/verr"
)

// NumType identifies a declared numeric representation.
type NumType int

const (
	Byte NumType = iota
	Ubyte
	Short
	Ushort
	Int
	Uint
	Long
	Ulong
	Float
	Double
)

// ParseNumType maps a schema string to a NumType.
func ParseNumType(s string) (NumType, error) {
	switch s {
	case "byte":
		return Byte, nil
	case "ubyte":
		return Ubyte, nil
	case "short":
		return Short, nil
	case "ushort":
		return Ushort, nil
	case "int":
		return Int, nil
	case "uint":
		return Uint, nil
	case "long":
		return Long, nil
	case "ulong":
		return Ulong, nil
	case "float":
		return Float, nil
	case "double":
		return Double, nil
	default:
		return 0, verr.Configf("unsupported numeric type %q", s)
	}
}

// Width returns the stored width in bytes, one of {1,2,4,8}.
func (t NumType) Width() int {
	switch t {
	case Byte, Ubyte:
		return 1
	case Short, Ushort:
		return 2
	case Int, Uint, Float:
		return 4
	case Long, Ulong, Double:
		return 8
	default:
		return 8
	}
}

// IsFloat reports whether the type is Float or Double.
func (t NumType) IsFloat() bool {
	return t == Float || t == Double
}

// IsSigned reports whether the type is a signed integer type.
func (t NumType) IsSigned() bool {
	switch t {
	case Byte, Short, Int, Long:
		return true
	default:
		return false
	}
}

// AnyNum is an 8-byte, tagless scalar union: the stored bit pattern is
// reinterpreted according to whichever NumType the caller already knows
// from the column schema. No type tag is carried inside the value itself.
type AnyNum struct {
	bits uint64
}

// NewInt builds an AnyNum from a signed 64-bit value.
func NewInt(v int64) AnyNum { return AnyNum{bits: uint64(v)} }

// NewUint builds an AnyNum from an unsigned 64-bit value.
func NewUint(v uint64) AnyNum { return AnyNum{bits: v} }

// NewFloat builds an AnyNum from a float64, stored via its IEEE-754 bits.
func NewFloat(v float64) AnyNum { return AnyNum{bits: math.Float64bits(v)} }

// Int64 reinterprets the stored bits as a signed 64-bit integer.
func (a AnyNum) Int64() int64 { return int64(a.bits) }

// Uint64 reinterprets the stored bits as an unsigned 64-bit integer.
func (a AnyNum) Uint64() uint64 { return a.bits }

// Float64 reinterprets the stored bits as an IEEE-754 double.
func (a AnyNum) Float64() float64 { return math.Float64frombits(a.bits) }

// As reinterprets the value per t, returning a canonical float64 for
// arithmetic (sum/avg) while preserving the declared type's semantics for
// min/max/compare call sites, which should use the typed accessors above
// directly instead when exactness matters (e.g. ulong near 2^63).
func (a AnyNum) As(t NumType) float64 {
	switch {
	case t.IsFloat():
		return a.Float64()
	case t.IsSigned():
		return float64(a.Int64())
	default:
		return float64(a.Uint64())
	}
}

// Parse parses a textual field into an AnyNum of the declared type. An
// empty string is a parse error, not an implicit zero: a row with a
// missing numeric field is malformed and must be counted as failed, not
// silently defaulted.
func Parse(t NumType, s string) (AnyNum, error) {
	if s == "" {
		return AnyNum{}, verr.Parsef("invalid %v value %q", t, s)
	}
	switch {
	case t.IsFloat():
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return AnyNum{}, verr.Parsef("invalid %v value %q", t, s)
		}
		return NewFloat(v), nil
	case t.IsSigned():
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return AnyNum{}, verr.Parsef("invalid %v value %q", t, s)
		}
		return NewInt(v), nil
	default:
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return AnyNum{}, verr.Parsef("invalid %v value %q", t, s)
		}
		return NewUint(v), nil
	}
}

// Zero returns the additive identity for t (used to init SUM/AVG/COUNT).
func Zero(t NumType) AnyNum {
	if t.IsFloat() {
		return NewFloat(0)
	}
	return NewUint(0)
}

// MaxValue returns the type's maximum representable value, used as MIN's
// init value and as the "never matches" sentinel for unresolved string
// filter values.
func MaxValue(t NumType) AnyNum {
	switch t {
	case Byte:
		return NewInt(math.MaxInt8)
	case Ubyte:
		return NewUint(math.MaxUint8)
	case Short:
		return NewInt(math.MaxInt16)
	case Ushort:
		return NewUint(math.MaxUint16)
	case Int:
		return NewInt(math.MaxInt32)
	case Uint:
		return NewUint(math.MaxUint32)
	case Long:
		return NewInt(math.MaxInt64)
	case Ulong:
		return NewUint(math.MaxUint64)
	case Float:
		return NewFloat(math.MaxFloat32)
	case Double:
		return NewFloat(math.MaxFloat64)
	default:
		return NewUint(math.MaxUint64)
	}
}

// MinValue returns the type's minimum representable value, used as MAX's
// init value.
func MinValue(t NumType) AnyNum {
	switch t {
	case Byte:
		return NewInt(math.MinInt8)
	case Short:
		return NewInt(math.MinInt16)
	case Int:
		return NewInt(math.MinInt32)
	case Long:
		return NewInt(math.MinInt64)
	case Ubyte, Ushort, Uint, Ulong:
		return NewUint(0)
	case Float:
		return NewFloat(-math.MaxFloat32)
	case Double:
		return NewFloat(-math.MaxFloat64)
	default:
		return NewUint(0)
	}
}

// Compare orders two AnyNum values of the same declared type. It returns
// -1, 0, or 1.
func Compare(t NumType, a, b AnyNum) int {
	switch {
	case t.IsFloat():
		af, bf := a.Float64(), b.Float64()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case t.IsSigned():
		ai, bi := a.Int64(), b.Int64()
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		default:
			return 0
		}
	default:
		au, bu := a.Uint64(), b.Uint64()
		switch {
		case au < bu:
			return -1
		case au > bu:
			return 1
		default:
			return 0
		}
	}
}

func (t NumType) String() string {
	switch t {
	case Byte:
		return "byte"
	case Ubyte:
		return "ubyte"
	case Short:
		return "short"
	case Ushort:
		return "ushort"
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Long:
		return "long"
	case Ulong:
		return "ulong"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return "unknown"
	}
}
