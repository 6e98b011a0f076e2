package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"zero int", Int(0), false},
		{"nonzero int", Int(5), true},
		{"zero float", Float(0), false},
		{"false bool", Bool(false), false},
		{"true bool", Bool(true), true},
		{"nul char", Char(0), false},
		{"nonzero char", Char('a'), true},
		{"empty string", StringBorrow(nil), false},
		{"nonempty string", StringBorrow([]byte("x")), true},
		{"null", Null(), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Truthy(c.v); got != c.want {
				t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
			}
		})
	}
}

func TestToDisplay(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{Int(42), "42"},
		{Float(3.5), "3.5"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{Char('z'), "z"},
		{StringBorrow([]byte("hi")), "hi"},
		{Null(), "null"},
	}
	for _, c := range cases {
		if got := ToDisplay(c.v); got != c.want {
			t.Errorf("ToDisplay(%v) = %q, want %q", c.v, got, c.want)
		}
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Int(1), Int(1)) {
		t.Error("expected Int(1) == Int(1)")
	}
	if Equal(Int(1), Float(1)) {
		t.Error("mismatched kinds must never be equal, even with the same numeric value")
	}
	if !Equal(StringBorrow([]byte("a")), StringCopy([]byte("a"))) {
		t.Error("expected string equality to compare bytes, not identity")
	}
	if !Equal(Null(), Null()) {
		t.Error("expected Null() == Null()")
	}
}

func TestOwnCopyIndependenceFromSource(t *testing.T) {
	src := []byte("hello")
	borrowed := StringBorrow(src)
	owned := OwnCopy(borrowed)
	if !owned.Owned {
		t.Fatal("expected OwnCopy to mark the result owned")
	}
	src[0] = 'H'
	if string(owned.Str) != "hello" {
		t.Errorf("mutating the source mutated the copy: got %q", owned.Str)
	}
}

func TestOwnCopyIsNoOpForAlreadyOwnedOrNonString(t *testing.T) {
	i := Int(7)
	if got := OwnCopy(i); got.Kind != i.Kind || got.Int != i.Int || got.Owned != i.Owned {
		t.Error("OwnCopy must pass non-string values through unchanged")
	}
	owned := StringOwned([]byte("x"))
	if OwnCopy(owned).Str[0] != owned.Str[0] {
		t.Error("OwnCopy of an already-owned string must not allocate a different buffer content")
	}
}
