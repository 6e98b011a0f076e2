// Package value implements the VM's tagged value union (component A) and
// its string ownership discipline.
//
// The stack mixes two kinds of string storage: constants and locals that
// are merely borrowed from a longer-lived owner, and fresh strings that a
// concatenation or conversion just allocated. The Owned flag tracks which
// is which. Go's garbage collector makes manual deallocation unnecessary,
// but the ownership discipline is still load-bearing here: own_copy
// decides when a value must be independently duplicated before a slot it
// doesn't own gets overwritten out from under it (see Destroy and the
// call/return handling in internal/vm), which matters because Value's
// string payload is a mutable []byte, not an immutable Go string.
package value

import (
	"fmt"
	"strconv"
)

// Kind tags which variant of the union a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindBool
	KindChar
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindChar:
		return "Char"
	case KindString:
		return "String"
	default:
		return "Null"
	}
}

// Value is the unit of stack traffic: a tagged scalar/string union.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Char  byte
	Str   []byte
	// Owned is meaningful only when Kind == KindString. true means this
	// Value is responsible for the storage in Str; false means Str is
	// borrowed from a longer-lived owner (the constant pool, a local
	// slot, or a global slot) and must not be mutated or outlive it.
	Owned bool
}

func Int(i int64) Value     { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }
func Bool(b bool) Value     { return Value{Kind: KindBool, Bool: b} }
func Char(c byte) Value     { return Value{Kind: KindChar, Char: c} }
func Null() Value            { return Value{Kind: KindNull} }

// StringOwned wraps buf as an owned string value. buf is taken as-is, not
// copied; the caller must not retain other owning references to it.
func StringOwned(buf []byte) Value {
	return Value{Kind: KindString, Str: buf, Owned: true}
}

// StringCopy deep-copies s into a freshly owned string value, used when
// inserting a string literal into the constant pool (the pool must own
// its storage independently of the source token's buffer).
func StringCopy(s []byte) Value {
	buf := make([]byte, len(s))
	copy(buf, s)
	return StringOwned(buf)
}

// StringBorrow wraps buf as a borrowed (non-owned) string view. The
// caller is asserting buf will outlive this Value.
func StringBorrow(buf []byte) Value {
	return Value{Kind: KindString, Str: buf, Owned: false}
}

// OwnCopy returns v unchanged if it is already owned or not a string;
// otherwise it allocates an independent heap copy and returns an owned
// value. This is the operation the VM applies whenever a borrowed value
// is about to be stored somewhere with a lifetime the source doesn't
// guarantee (store-local, store-global, return).
func OwnCopy(v Value) Value {
	if v.Kind != KindString || v.Owned {
		return v
	}
	return StringCopy(v.Str)
}

// Destroy releases the storage owned by v, if any. Go's GC reclaims the
// backing array regardless; Destroy exists so the ownership protocol in
// §3/§5 of the spec — pop, slot overwrite, and frame teardown each
// "destroy" a value — has a single call site to reason about, and so a
// future non-GC'd backing store could slot in here unchanged.
func Destroy(v Value) {
	_ = v
}

// Truthy implements the language's truthiness rule: non-zero numerics,
// non-empty strings, non-NUL chars, and true are truthy; everything else
// (including null) is falsy.
func Truthy(v Value) bool {
	switch v.Kind {
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindBool:
		return v.Bool
	case KindChar:
		return v.Char != 0
	case KindString:
		return len(v.Str) != 0
	default:
		return false
	}
}

// ToDisplay renders v as a human-readable string: strings pass through
// unmodified, integers print base-10, floats print their shortest
// round-trip representation, booleans print "true"/"false", and null
// prints "null".
func ToDisplay(v Value) string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindChar:
		return string(rune(v.Char))
	case KindString:
		return string(v.Str)
	default:
		return "null"
	}
}

// Equal implements the VM's equal/not-equal opcodes: type-equal operands
// compared by variant, strings compared by bytes, nulls equal iff both
// are null; mismatched kinds are never equal.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float
	case KindBool:
		return a.Bool == b.Bool
	case KindChar:
		return a.Char == b.Char
	case KindString:
		return string(a.Str) == string(b.Str)
	default:
		return true // both Null
	}
}

// GoString implements fmt.GoStringer for debugging and test failure
// output.
func (v Value) GoString() string {
	return fmt.Sprintf("Value{%s %s}", v.Kind, ToDisplay(v))
}
