// Package bytecode implements the bytecode chunk (component B): an
// append-only instruction array, constant pool, and function table, plus
// the disassembler used by `ocl dump`.
package bytecode

import (
	"fmt"
	"strings"

	"github.com/NumSlower/ocl/internal/diag"
	"github.com/NumSlower/ocl/internal/value"
)

// Op is a single VM opcode.
type Op int

const (
	OpPushConst Op = iota
	OpPop
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpStoreGlobal
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
	OpNegate
	OpNot
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAnd
	OpOr
	OpJump
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpReturn
	OpHalt
	OpCallBuiltin
	OpToInt
	OpToFloat
	OpToString
	OpConcat
	OpArrayGet // reserved, spec §4.7 array-*: "not implemented"
	OpArraySet // reserved
)

var opNames = map[Op]string{
	OpPushConst:    "push-const",
	OpPop:          "pop",
	OpLoadLocal:    "load-local",
	OpStoreLocal:   "store-local",
	OpLoadGlobal:   "load-global",
	OpStoreGlobal:  "store-global",
	OpAdd:          "add",
	OpSubtract:     "subtract",
	OpMultiply:     "multiply",
	OpDivide:       "divide",
	OpModulo:       "modulo",
	OpNegate:       "negate",
	OpNot:          "not",
	OpEqual:        "equal",
	OpNotEqual:     "not-equal",
	OpLess:         "less",
	OpLessEqual:    "less-equal",
	OpGreater:      "greater",
	OpGreaterEqual: "greater-equal",
	OpAnd:          "and",
	OpOr:           "or",
	OpJump:         "jump",
	OpJumpIfFalse:  "jump-if-false",
	OpJumpIfTrue:   "jump-if-true",
	OpCall:         "call",
	OpReturn:       "return",
	OpHalt:         "halt",
	OpCallBuiltin:  "call-builtin",
	OpToInt:        "to-int",
	OpToFloat:      "to-float",
	OpToString:     "to-string",
	OpConcat:       "concat",
	OpArrayGet:     "array-get",
	OpArraySet:     "array-set",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("unknown-opcode(%d)", int(o))
}

// SentinelIP marks a function entry whose start instruction index is not
// yet known, per the GLOSSARY's "sentinel ordinal".
const SentinelIP uint32 = 0xFFFFFFFF

// Instruction is one opcode plus its two operands and originating source
// location, used to tag runtime diagnostics.
type Instruction struct {
	Op  Op
	A   uint32
	B   uint32
	Pos diag.Position
}

// FunctionEntry is a registered function's calling-convention metadata.
type FunctionEntry struct {
	Name       string
	StartIP    uint32
	ParamCount int
	LocalCount int
}

// Chunk is the output of code generation: instructions, constant pool,
// and function table, consumed read-only by the VM.
type Chunk struct {
	Instructions []Instruction
	Constants    []value.Value
	Functions    []FunctionEntry
}

// New creates an empty Chunk.
func New() *Chunk {
	return &Chunk{}
}

// Emit appends an instruction and returns its index.
func (c *Chunk) Emit(op Op, a, b uint32, pos diag.Position) int {
	c.Instructions = append(c.Instructions, Instruction{Op: op, A: a, B: b, Pos: pos})
	return len(c.Instructions) - 1
}

// Patch overwrites instruction idx's first operand, used to backpatch a
// previously emitted jump once its target is known.
func (c *Chunk) Patch(idx int, newA uint32) {
	c.Instructions[idx].A = newA
}

// AddConstant deep-copies v into the pool if it is a string (the pool
// must own its storage independently of whatever produced v), and
// returns its ordinal.
func (c *Chunk) AddConstant(v value.Value) uint32 {
	if v.Kind == value.KindString {
		v = value.StringCopy(v.Str)
	}
	c.Constants = append(c.Constants, v)
	return uint32(len(c.Constants) - 1)
}

// AddFunction registers or updates a function entry. If an entry named
// name already exists, its start_ip and param_count are updated, but the
// sentinel never overwrites an already-known start_ip (the second pass
// over the same name patches a resolved start_ip in, it never reverts
// one already assigned).
func (c *Chunk) AddFunction(name string, startIP uint32, paramCount int) uint32 {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			if startIP != SentinelIP {
				c.Functions[i].StartIP = startIP
			}
			c.Functions[i].ParamCount = paramCount
			return uint32(i)
		}
	}
	c.Functions = append(c.Functions, FunctionEntry{Name: name, StartIP: startIP, ParamCount: paramCount})
	return uint32(len(c.Functions) - 1)
}

// SetLocalCount finalizes a function entry's local_count once its body
// has been fully emitted.
func (c *Chunk) SetLocalCount(ordinal uint32, count int) {
	c.Functions[ordinal].LocalCount = count
}

// FindFunction does a linear lookup by name, returning its ordinal and
// whether it was found.
func (c *Chunk) FindFunction(name string) (uint32, bool) {
	for i := range c.Functions {
		if c.Functions[i].Name == name {
			return uint32(i), true
		}
	}
	return 0, false
}

// Disassemble renders the chunk as a human-readable listing: functions,
// constants, and the instruction stream with resolved jump targets,
// grounded on the teacher's DumpBytecode/DiassembleBytecode pairing.
func Disassemble(c *Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "functions (%d):\n", len(c.Functions))
	for i, f := range c.Functions {
		fmt.Fprintf(&b, "  [%d] %s start_ip=%d params=%d locals=%d\n", i, f.Name, f.StartIP, f.ParamCount, f.LocalCount)
	}
	fmt.Fprintf(&b, "constants (%d):\n", len(c.Constants))
	for i, v := range c.Constants {
		fmt.Fprintf(&b, "  [%d] %s\n", i, v.GoString())
	}
	fmt.Fprintf(&b, "instructions (%d):\n", len(c.Instructions))
	for i, ins := range c.Instructions {
		fmt.Fprintf(&b, "  %04d %-14s a=%d b=%d  ; %d:%d\n", i, ins.Op, ins.A, ins.B, ins.Pos.Line, ins.Pos.Column)
	}
	return b.String()
}
