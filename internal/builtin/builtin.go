// Package builtin implements the built-in registry (spec §6): a static
// table of {id, name, handler} entries. print and printf are wired
// directly into the VM's opcode dispatch; everything else is reached
// through the call-builtin opcode, resolved by name at codegen time.
package builtin

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/NumSlower/ocl/internal/value"
)

// stdin is shared by the input/readLine built-ins across every
// evaluator (VM and tree-walking); spec §6 requires line-buffered
// reading with a single trailing CR or LF stripped.
var stdin = bufio.NewReader(os.Stdin)

// SetStdin replaces the shared reader, used by tests to feed canned
// input without touching the real process stdin.
func SetStdin(r io.Reader) { stdin = bufio.NewReader(r) }

// FormattedPrintName is the callee name the parser special-cases for the
// colon-mode call syntax (spec §4.3, §6).
const FormattedPrintName = "printf"

// PrintName is the other built-in the VM dispatches directly rather than
// through call-builtin.
const PrintName = "print"

// IDPrint and IDPrintf are the two stable ids the VM special-cases in its
// call-builtin handler instead of consulting Registry's (nil) Handler
// field for them (spec §4.4: "Two ids (print and formatted-print) are
// wired directly into the VM").
const (
	IDPrint  = idPrint
	IDPrintf = idPrintf
)

// Handler implements a built-in's behavior. It receives the already
// popped, in-order argument values and returns exactly one result value
// or an error (which the VM turns into a runtime diagnostic and halt).
type Handler func(args []value.Value) (value.Value, error)

// Entry is a single registry row.
type Entry struct {
	ID      int
	Name    string
	Arity   int  // -1 means variadic
	Handler Handler
}

// ids, in registration order, giving each built-in a stable numeric id
// independent of map iteration order.
const (
	idPrint = iota
	idPrintf
	idInput
	idReadLine

	idAbs
	idSqrt
	idPow
	idSin
	idCos
	idTan
	idFloor
	idCeil
	idRound
	idMax
	idMin

	idStrLen
	idSubstr
	idToUpperCase
	idToLowerCase
	idStrContains
	idStrIndexOf
	idStrReplace
	idStrTrim
	idStrSplit

	idToInt
	idToFloat
	idToString
	idToBool
	idTypeOf

	idExit
	idAssert
	idIsNull
	idIsInt
	idIsFloat
	idIsString
	idIsBool
)

// Registry maps a built-in's source name to its Entry. Callers that need
// the ids documented in spec §6 should use the ID field; the map key is
// what the code generator resolves call sites against.
var Registry = map[string]Entry{
	"print":     {ID: idPrint, Name: "print", Arity: 1, Handler: nil}, // dispatched directly by the VM
	"printf":    {ID: idPrintf, Name: "printf", Arity: -1, Handler: nil},
	"input":     {ID: idInput, Name: "input", Arity: 0, Handler: builtinInput},
	"readLine":  {ID: idReadLine, Name: "readLine", Arity: 0, Handler: builtinInput},

	"abs":   {ID: idAbs, Name: "abs", Arity: 1, Handler: builtinAbs},
	"sqrt":  {ID: idSqrt, Name: "sqrt", Arity: 1, Handler: builtinSqrt},
	"pow":   {ID: idPow, Name: "pow", Arity: 2, Handler: builtinPow},
	"sin":   {ID: idSin, Name: "sin", Arity: 1, Handler: builtinSin},
	"cos":   {ID: idCos, Name: "cos", Arity: 1, Handler: builtinCos},
	"tan":   {ID: idTan, Name: "tan", Arity: 1, Handler: builtinTan},
	"floor": {ID: idFloor, Name: "floor", Arity: 1, Handler: builtinFloor},
	"ceil":  {ID: idCeil, Name: "ceil", Arity: 1, Handler: builtinCeil},
	"round": {ID: idRound, Name: "round", Arity: 1, Handler: builtinRound},
	"max":   {ID: idMax, Name: "max", Arity: 2, Handler: builtinMax},
	"min":   {ID: idMin, Name: "min", Arity: 2, Handler: builtinMin},

	"strLen":       {ID: idStrLen, Name: "strLen", Arity: 1, Handler: builtinStrLen},
	"substr":       {ID: idSubstr, Name: "substr", Arity: -1, Handler: builtinSubstr},
	"toUpperCase":  {ID: idToUpperCase, Name: "toUpperCase", Arity: 1, Handler: builtinToUpperCase},
	"toLowerCase":  {ID: idToLowerCase, Name: "toLowerCase", Arity: 1, Handler: builtinToLowerCase},
	"strContains":  {ID: idStrContains, Name: "strContains", Arity: 2, Handler: builtinStrContains},
	"strIndexOf":   {ID: idStrIndexOf, Name: "strIndexOf", Arity: 2, Handler: builtinStrIndexOf},
	"strReplace":   {ID: idStrReplace, Name: "strReplace", Arity: 3, Handler: builtinStrReplace},
	"strTrim":      {ID: idStrTrim, Name: "strTrim", Arity: 1, Handler: builtinStrTrim},
	"strSplit":     {ID: idStrSplit, Name: "strSplit", Arity: 2, Handler: builtinStrSplit},

	"toInt":    {ID: idToInt, Name: "toInt", Arity: 1, Handler: builtinToInt},
	"toFloat":  {ID: idToFloat, Name: "toFloat", Arity: 1, Handler: builtinToFloat},
	"toString": {ID: idToString, Name: "toString", Arity: 1, Handler: builtinToString},
	"toBool":   {ID: idToBool, Name: "toBool", Arity: 1, Handler: builtinToBool},
	"typeOf":   {ID: idTypeOf, Name: "typeOf", Arity: 1, Handler: builtinTypeOf},

	"exit":     {ID: idExit, Name: "exit", Arity: 1, Handler: builtinExit},
	"assert":   {ID: idAssert, Name: "assert", Arity: -1, Handler: builtinAssert},
	"isNull":   {ID: idIsNull, Name: "isNull", Arity: 1, Handler: builtinIsNull},
	"isInt":    {ID: idIsInt, Name: "isInt", Arity: 1, Handler: builtinIsInt},
	"isFloat":  {ID: idIsFloat, Name: "isFloat", Arity: 1, Handler: builtinIsFloat},
	"isString": {ID: idIsString, Name: "isString", Arity: 1, Handler: builtinIsString},
	"isBool":   {ID: idIsBool, Name: "isBool", Arity: 1, Handler: builtinIsBool},
}

// Lookup returns the entry for name and whether it exists.
func Lookup(name string) (Entry, bool) {
	e, ok := Registry[name]
	return e, ok
}

// CheckArity reports whether argc is valid for entry (always true for a
// variadic entry, i.e. Arity == -1). Callers should check this before
// invoking Handler: every fixed-arity handler indexes args by position
// without its own bounds check, trusting the resolver's arity diagnostic
// to have kept a mismatched call from reaching it. That diagnostic is
// advisory (spec §4.5, §9) and can be bypassed, so the VM and the
// tree-walking evaluator both call this first and turn a mismatch into a
// clean runtime error instead of an out-of-range panic.
func (e Entry) CheckArity(argc int) bool {
	return e.Arity < 0 || e.Arity == argc
}

// byID is built lazily from Registry, keyed by stable numeric id, for
// the VM's call-builtin dispatch (which only has the id, not the name).
var byID map[int]Entry

// LookupByID returns the entry with the given stable id and whether it
// exists.
func LookupByID(id int) (Entry, bool) {
	if byID == nil {
		byID = make(map[int]Entry, len(Registry))
		for _, e := range Registry {
			byID[e.ID] = e
		}
	}
	e, ok := byID[id]
	return e, ok
}

func asFloat(v value.Value) float64 {
	if v.Kind == value.KindInt {
		return float64(v.Int)
	}
	return v.Float
}

func builtinAbs(args []value.Value) (value.Value, error) {
	v := args[0]
	if v.Kind == value.KindInt {
		if v.Int < 0 {
			return value.Int(-v.Int), nil
		}
		return v, nil
	}
	return value.Float(math.Abs(asFloat(v))), nil
}

func builtinSqrt(args []value.Value) (value.Value, error) { return value.Float(math.Sqrt(asFloat(args[0]))), nil }
func builtinPow(args []value.Value) (value.Value, error) {
	return value.Float(math.Pow(asFloat(args[0]), asFloat(args[1]))), nil
}
func builtinSin(args []value.Value) (value.Value, error) { return value.Float(math.Sin(asFloat(args[0]))), nil }
func builtinCos(args []value.Value) (value.Value, error) { return value.Float(math.Cos(asFloat(args[0]))), nil }
func builtinTan(args []value.Value) (value.Value, error) { return value.Float(math.Tan(asFloat(args[0]))), nil }
func builtinFloor(args []value.Value) (value.Value, error) {
	return value.Float(math.Floor(asFloat(args[0]))), nil
}
func builtinCeil(args []value.Value) (value.Value, error) {
	return value.Float(math.Ceil(asFloat(args[0]))), nil
}
func builtinRound(args []value.Value) (value.Value, error) {
	return value.Float(math.Round(asFloat(args[0]))), nil
}

func builtinMax(args []value.Value) (value.Value, error) {
	a, b := args[0], args[1]
	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		if a.Int > b.Int {
			return a, nil
		}
		return b, nil
	}
	if asFloat(a) > asFloat(b) {
		return value.Float(asFloat(a)), nil
	}
	return value.Float(asFloat(b)), nil
}

func builtinMin(args []value.Value) (value.Value, error) {
	a, b := args[0], args[1]
	if a.Kind == value.KindInt && b.Kind == value.KindInt {
		if a.Int < b.Int {
			return a, nil
		}
		return b, nil
	}
	if asFloat(a) < asFloat(b) {
		return value.Float(asFloat(a)), nil
	}
	return value.Float(asFloat(b)), nil
}

func builtinStrLen(args []value.Value) (value.Value, error) {
	return value.Int(int64(len(args[0].Str))), nil
}

// builtinSubstr implements substr(s, start, len?): len defaults to "rest
// of string" when omitted. Out-of-range indices clamp rather than error,
// matching the language's permissive runtime (spec §7's recovery-by-Null
// policy is reserved for opcode-level faults, not built-in argument
// ranges).
func builtinSubstr(args []value.Value) (value.Value, error) {
	s := args[0].Str
	start := int(args[1].Int)
	if start < 0 {
		start = 0
	}
	if start > len(s) {
		start = len(s)
	}
	end := len(s)
	if len(args) >= 3 {
		n := int(args[2].Int)
		if start+n < end {
			end = start + n
		}
	}
	return value.StringCopy(s[start:end]), nil
}

func builtinToUpperCase(args []value.Value) (value.Value, error) {
	return value.StringCopy([]byte(strings.ToUpper(string(args[0].Str)))), nil
}

func builtinToLowerCase(args []value.Value) (value.Value, error) {
	return value.StringCopy([]byte(strings.ToLower(string(args[0].Str)))), nil
}

func builtinStrContains(args []value.Value) (value.Value, error) {
	return value.Bool(strings.Contains(string(args[0].Str), string(args[1].Str))), nil
}

func builtinStrIndexOf(args []value.Value) (value.Value, error) {
	return value.Int(int64(strings.Index(string(args[0].Str), string(args[1].Str)))), nil
}

func builtinStrReplace(args []value.Value) (value.Value, error) {
	out := strings.ReplaceAll(string(args[0].Str), string(args[1].Str), string(args[2].Str))
	return value.StringCopy([]byte(out)), nil
}

func builtinStrTrim(args []value.Value) (value.Value, error) {
	return value.StringCopy([]byte(strings.TrimSpace(string(args[0].Str)))), nil
}

// builtinStrSplit returns the token count rather than an array of the
// parts, pending array support (spec §6 explicitly carries this
// limitation forward: "strSplit currently returns the token count
// pending array support").
func builtinStrSplit(args []value.Value) (value.Value, error) {
	parts := strings.Split(string(args[0].Str), string(args[1].Str))
	return value.Int(int64(len(parts))), nil
}

func builtinToInt(args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind {
	case value.KindInt:
		return v, nil
	case value.KindFloat:
		return value.Int(int64(v.Float)), nil
	case value.KindBool:
		if v.Bool {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.KindChar:
		return value.Int(int64(v.Char)), nil
	case value.KindString:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v.Str)), 10, 64)
		if err != nil {
			return value.Int(0), nil
		}
		return value.Int(n), nil
	default:
		return value.Int(0), nil
	}
}

func builtinToFloat(args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind {
	case value.KindInt:
		return value.Float(float64(v.Int)), nil
	case value.KindFloat:
		return v, nil
	case value.KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v.Str)), 64)
		if err != nil {
			return value.Float(0), nil
		}
		return value.Float(f), nil
	default:
		return value.Float(0), nil
	}
}

func builtinToString(args []value.Value) (value.Value, error) {
	return value.StringCopy([]byte(value.ToDisplay(args[0]))), nil
}

func builtinToBool(args []value.Value) (value.Value, error) {
	return value.Bool(value.Truthy(args[0])), nil
}

func builtinTypeOf(args []value.Value) (value.Value, error) {
	return value.StringCopy([]byte(args[0].Kind.String())), nil
}

// builtinExit signals process termination by returning an *ExitError.
// Both the VM's callBuiltin and the tree-walking evaluator call this
// handler and turn that error into a halt with the given exit code
// rather than a runtime fault.
func builtinExit(args []value.Value) (value.Value, error) {
	return value.Null(), &ExitError{Code: int(args[0].Int)}
}

// ExitError is returned by exit to signal process termination rather
// than a runtime fault.
type ExitError struct{ Code int }

func (e *ExitError) Error() string { return fmt.Sprintf("exit(%d)", e.Code) }

func builtinAssert(args []value.Value) (value.Value, error) {
	if !value.Truthy(args[0]) {
		msg := "assertion failed"
		if len(args) >= 2 {
			msg = value.ToDisplay(args[1])
		}
		return value.Null(), fmt.Errorf("%s", msg)
	}
	return value.Null(), nil
}

func builtinIsNull(args []value.Value) (value.Value, error)   { return value.Bool(args[0].Kind == value.KindNull), nil }
func builtinIsInt(args []value.Value) (value.Value, error)    { return value.Bool(args[0].Kind == value.KindInt), nil }
func builtinIsFloat(args []value.Value) (value.Value, error)  { return value.Bool(args[0].Kind == value.KindFloat), nil }
func builtinIsString(args []value.Value) (value.Value, error) { return value.Bool(args[0].Kind == value.KindString), nil }
func builtinIsBool(args []value.Value) (value.Value, error)   { return value.Bool(args[0].Kind == value.KindBool), nil }

// builtinInput reads one line from standard input, stripping a trailing
// LF and then a trailing CR, so a lone CR, a lone LF, or a CRLF pair is
// removed. Shared by both "input" and "readLine", which are aliases.
func builtinInput(args []value.Value) (value.Value, error) {
	line, err := stdin.ReadString('\n')
	if err != nil && len(line) == 0 {
		return value.StringOwned(nil), nil
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return value.StringOwned([]byte(line)), nil
}
