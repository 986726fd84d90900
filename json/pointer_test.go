package json

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rfc6901Doc = `{"foo": ["bar", "baz"], "": 0, "a/b": 1, "c%d": 2, "e^f": 3, "g|h": 4, "i\\j": 5, "k\"l": 6, " ": 7, "m~n": 8}`

func TestQueryRFC6901(t *testing.T) {
	root := mustParse(t, rfc6901Doc)
	tests := []struct {
		ptr  string
		want any
	}{
		{"/foo/0", "bar"},
		{"/foo/1", "baz"},
		{"/a~1b", 1.0},
		{"/c%d", 2.0},
		{"/e^f", 3.0},
		{"/g|h", 4.0},
		{`/i\j`, 5.0},
		{`/k"l`, 6.0},
		{"/ ", 7.0},
		{"/m~0n", 8.0},
	}
	for _, tt := range tests {
		v, err := QueryString(root, tt.ptr)
		require.NoError(t, err, tt.ptr)
		assert.Equal(t, tt.want, v.Interface(), tt.ptr)
	}

	foo, err := root.Query("/foo")
	require.NoError(t, err)
	assert.Equal(t, []any{"bar", "baz"}, foo.Interface())

	// "/" 返回根
	v, err := QueryString(root, "/")
	require.NoError(t, err)
	assert.Same(t, root, v)
}

func TestQueryErrors(t *testing.T) {
	root := mustParse(t, rfc6901Doc)
	tests := []struct {
		ptr  string
		want error
	}{
		{"", ErrInvalidPointer},
		{"foo", ErrInvalidPointer},
		{"/foo/", ErrInvalidPointer},
		{"/m~2n", ErrInvalidPointer},
		{"/m~", ErrInvalidPointer},
		{"/foo/01", ErrInvalidIndex},
		{"/foo/-", ErrInvalidIndex},
		{"/foo/+1", ErrInvalidIndex},
		{"/foo/99999999999999999999999", ErrInvalidIndex},
		{"/foo/2", ErrNotFound},
		{"/nope", ErrNotFound},
		{"/foo/0/x", ErrTypeMismatch},
	}
	for _, tt := range tests {
		v, err := QueryString(root, tt.ptr)
		assert.ErrorIs(t, err, tt.want, tt.ptr)
		assert.Nil(t, v, tt.ptr)
	}

	_, err := QueryString(nil, "/a")
	assert.ErrorIs(t, err, ErrInvalidUsage)

	scalar := mustParse(t, `42`)
	_, err = QueryString(scalar, "/a")
	assert.ErrorIs(t, err, ErrTypeMismatch)
	v, err := QueryString(scalar, "/")
	require.NoError(t, err)
	assert.Same(t, scalar, v)

	empty := mustParse(t, `[]`)
	_, err = QueryString(empty, "/0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryTildeSinglePass(t *testing.T) {
	root := mustParse(t, `{"~1":"tilde-one","/":"slash","~":"tilde"}`)
	for ptr, want := range map[string]string{
		"/~01": "tilde-one",
		"/~1":  "slash",
		"/~0":  "tilde",
	} {
		v, err := QueryString(root, ptr)
		require.NoError(t, err, ptr)
		assert.Equal(t, want, v.Str(), ptr)
	}
}

func TestQueryDuplicateFirst(t *testing.T) {
	root := mustParse(t, `{"a":{"b":1},"a":{"b":2}}`)
	v, err := QueryString(root, "/a/b")
	require.NoError(t, err)
	assert.Equal(t, 1.0, v.Float64())
}

func TestQueryLongToken(t *testing.T) {
	key := "k~" + string(make([]byte, 100)) + "/end"
	f := NewFactory(nil)
	root := f.NewObject()
	require.True(t, f.AddPairString(root, key, f.NewTrue()))

	ptr, err := NewPointer(key)
	require.NoError(t, err)
	v, err := QueryString(root, ptr.String())
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestPointer(t *testing.T) {
	p, err := ParsePointer("/a~1b/0/m~0n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b", "0", "m~n"}, p.Tokens())
	assert.Equal(t, "/a~1b/0/m~0n", p.String())

	root := mustParse(t, `{"a/b":[{"m~n":"found"}]}`)
	v, err := p.Eval(root)
	require.NoError(t, err)
	assert.Equal(t, "found", v.Str())

	rootPtr, err := ParsePointer("/")
	require.NoError(t, err)
	assert.Empty(t, rootPtr.Tokens())
	assert.Equal(t, "/", rootPtr.String())
	v, err = rootPtr.Eval(root)
	require.NoError(t, err)
	assert.Same(t, root, v)

	for _, bad := range []string{"", "a", "/a/", "/~x"} {
		_, err := ParsePointer(bad)
		assert.ErrorIs(t, err, ErrInvalidPointer, bad)
	}

	x, err := NewPointer("x")
	require.NoError(t, err)
	_, err = x.Eval(nil)
	assert.ErrorIs(t, err, ErrInvalidUsage)
	_, err = x.Eval(mustParse(t, `"s"`))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	assert.Equal(t, "~0~1", EscapeToken("~/"))
}

func TestNewPointerRoundTrip(t *testing.T) {
	for _, bad := range [][]string{{""}, {"a", ""}} {
		_, err := NewPointer(bad...)
		assert.ErrorIs(t, err, ErrInvalidPointer, "%q", bad)
	}

	for _, tokens := range [][]string{{}, {"a"}, {"", "b"}, {"a", "", "c"}, {"~/"}} {
		p, err := NewPointer(tokens...)
		require.NoError(t, err, "%q", tokens)
		back, err := ParsePointer(p.String())
		require.NoError(t, err, p.String())
		assert.Equal(t, p.Tokens(), back.Tokens(), p.String())
	}
}

func BenchmarkQuery(b *testing.B) {
	root, err := NewParser(WithErrorStream(nil)).ParseString(rfc6901Doc)
	if err != nil {
		b.Fatal(err)
	}
	q := []byte("/foo/1")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Query(root, q); err != nil {
			b.Fatal(err)
		}
	}
}
