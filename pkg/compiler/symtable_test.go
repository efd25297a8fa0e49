package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDeclare(t *testing.T) {
	s := NewScope()

	slot, ok := s.Declare(INT, "a")
	require.True(t, ok)
	assert.Equal(t, 0, slot)

	slot, ok = s.Declare(STRING_TYPE, "b")
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	_, ok = s.Declare(FLOAT, "a")
	assert.False(t, ok, "redeclaring a name in the same scope fails")

	slot, ok = s.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, 1, slot)

	_, ok = s.Lookup("c")
	assert.False(t, ok)

	assert.Equal(t, []LocalSymbol{{INT, "a"}, {STRING_TYPE, "b"}}, s.Locals())
}

func signature(t *testing.T, decl string) FunctionSignature {
	t.Helper()
	toks, err := Lex(decl)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(toks), 3)
	params, err := parseParams(toks[3:len(toks)-1], toks[1])
	require.NoError(t, err)
	return FunctionSignature{Return: toks[0], Name: toks[1], Params: params}
}

func TestSymbolTable(t *testing.T) {
	st := NewSymbolTable()

	require.True(t, st.Define(signature(t, "int add(int a, int b)"), 12))
	require.True(t, st.Define(signature(t, "void main()"), 30))
	assert.False(t, st.Define(signature(t, "void add()"), 40), "function names are unique")

	off, ok := st.Offset("add")
	require.True(t, ok)
	assert.Equal(t, 12, off)

	sig, ok := st.Signature("add")
	require.True(t, ok)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, "b", sig.Params[1].Name.Text())

	_, ok = st.Offset("missing")
	assert.False(t, ok)

	offsets := st.Offsets()
	assert.Equal(t, map[string]int{"add": 12, "main": 30}, offsets)
	offsets["add"] = 99
	off, _ = st.Offset("add")
	assert.Equal(t, 12, off, "Offsets returns a copy")

	assert.Equal(t, "Functions:\n  000c  int add(int a, int b)\n  001e  void main()\n", st.String())
}

func TestParseParamsRejectsMalformedLists(t *testing.T) {
	for _, decl := range []string{
		"void f(int)",
		"void f(int a,)",
		"void f(int a b)",
		"void f(a)",
	} {
		t.Run(decl, func(t *testing.T) {
			toks, err := Lex(decl)
			require.NoError(t, err)
			_, err = parseParams(toks[3:len(toks)-1], toks[1])
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Msg, "malformed parameter list of f")
		})
	}
}
