package builtin

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NumSlower/ocl/internal/value"
)

func TestRegistryArities(t *testing.T) {
	cases := map[string]int{
		"print": 1, "printf": -1, "input": 0, "readLine": 0,
		"abs": 1, "pow": 2, "max": 2, "min": 2,
		"substr": -1, "strReplace": 3, "assert": -1,
	}
	for name, wantArity := range cases {
		entry, ok := Lookup(name)
		require.Truef(t, ok, "expected %q in the registry", name)
		assert.Equalf(t, wantArity, entry.Arity, "arity of %q", name)
	}
}

func TestLookupByIDMatchesLookup(t *testing.T) {
	entry, ok := Lookup("sqrt")
	require.True(t, ok)
	byID, ok := LookupByID(entry.ID)
	require.True(t, ok)
	assert.Equal(t, entry.Name, byID.Name)
}

func TestMathBuiltins(t *testing.T) {
	entry, _ := Lookup("abs")
	v, err := entry.Handler([]value.Value{value.Int(-7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int)

	entry, _ = Lookup("max")
	v, err = entry.Handler([]value.Value{value.Int(3), value.Int(9)})
	require.NoError(t, err)
	assert.Equal(t, int64(9), v.Int)
}

func TestSubstrClampsOutOfRange(t *testing.T) {
	entry, _ := Lookup("substr")
	v, err := entry.Handler([]value.Value{value.StringBorrow([]byte("hello")), value.Int(2), value.Int(100)})
	require.NoError(t, err)
	assert.Equal(t, "llo", string(v.Str))

	v, err = entry.Handler([]value.Value{value.StringBorrow([]byte("hello")), value.Int(-5)})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(v.Str))
}

func TestStrSplitReturnsTokenCount(t *testing.T) {
	entry, _ := Lookup("strSplit")
	v, err := entry.Handler([]value.Value{value.StringBorrow([]byte("a,b,c")), value.StringBorrow([]byte(","))})
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Int)
}

func TestToIntFromString(t *testing.T) {
	entry, _ := Lookup("toInt")
	v, err := entry.Handler([]value.Value{value.StringBorrow([]byte(" 42 "))})
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Int)

	v, err = entry.Handler([]value.Value{value.StringBorrow([]byte("nope"))})
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Int)
}

func TestAssertFailureReturnsError(t *testing.T) {
	entry, _ := Lookup("assert")
	_, err := entry.Handler([]value.Value{value.Bool(false), value.StringBorrow([]byte("boom"))})
	require.Error(t, err)
	assert.Equal(t, "boom", err.Error())
}

func TestExitReturnsExitError(t *testing.T) {
	entry, _ := Lookup("exit")
	_, err := entry.Handler([]value.Value{value.Int(3)})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}

func TestInputReadsOneLineAndStripsCRLF(t *testing.T) {
	SetStdin(strings.NewReader("hello world\r\nsecond line\n"))
	entry, _ := Lookup("input")
	v, err := entry.Handler(nil)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(v.Str))

	v, err = entry.Handler(nil)
	require.NoError(t, err)
	assert.Equal(t, "second line", string(v.Str))
}
