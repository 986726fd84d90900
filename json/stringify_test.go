package json

import (
	stdjson "encoding/json"
	"math"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringifyFlags(t *testing.T) {
	v := mustParse(t, `{"a":[1,"x"],"b":{},"c":[]}`)
	tests := []struct {
		name   string
		indent string
		flags  Flags
		want   string
	}{
		{"compact", "", FlagDefault, `{"a":[1,"x"],"b":{},"c":[]}`},
		{"spaces", "", FlagSpaces, `{"a": [1, "x"], "b": {}, "c": []}`},
		{"indent", "", FlagIndent, "{\n\t\"a\":[\n\t\t1,\n\t\t\"x\"\n\t],\n\t\"b\":{},\n\t\"c\":[]\n}"},
		{"indent+spaces", "  ", FlagIndent | FlagSpaces, "{\n  \"a\": [\n    1,\n    \"x\"\n  ],\n  \"b\": {},\n  \"c\": []\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Stringify(v, tt.indent, tt.flags)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestStringifyEscapeFlags(t *testing.T) {
	v := NewString("é😀\n")
	tests := []struct {
		flags Flags
		want  string
	}{
		{FlagDefault, `"é😀\u000a"`},
		{FlagEscapeNonBMP, `"é` + `\ud83d\ude00` + `\u000a"`},
		{FlagEscapeNonASCII, `"` + `\u00e9` + `\ud83d\ude00` + `\u000a"`},
	}
	for _, tt := range tests {
		out, err := Stringify(v, "", tt.flags)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out))
	}
}

func TestStringifyNumbers(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{0, "0"},
		{1, "1"},
		{-2.5, "-2.5"},
		{0.1, "0.1"},
		{1e21, "1e+21"},
		{1e-7, "1e-07"},
		{123456789, "1.23456789e+08"},
	}
	for _, tt := range tests {
		out, err := Stringify(NewNumber(tt.n), "", 0)
		require.NoError(t, err)
		assert.Equal(t, tt.want, string(out))
	}

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		arr := NewArray()
		require.True(t, AddElement(arr, NewNumber(bad)))
		_, err := Stringify(arr, "", 0)
		assert.ErrorIs(t, err, ErrUnsupportedNumber)
	}
}

func TestStringifyTerminator(t *testing.T) {
	out, err := Stringify(mustParse(t, `[true,false,null]`), "", 0)
	require.NoError(t, err)
	assert.Equal(t, "[true,false,null]", string(out))
	require.Greater(t, cap(out), len(out))
	assert.Equal(t, byte(0), out[:len(out)+1][len(out)])
}

// sizeRecorder 记录 MakeBytes 请求的容量
type sizeRecorder struct {
	Allocator
	sizes []int
	freed int
}

func (s *sizeRecorder) MakeBytes(n int) []byte {
	s.sizes = append(s.sizes, n)
	return s.Allocator.MakeBytes(n)
}

func (s *sizeRecorder) FreeBytes(b []byte) {
	s.freed++
	s.Allocator.FreeBytes(b)
}

func TestStringifyBufferGrowth(t *testing.T) {
	v := mustParse(t, "["+strings.TrimSuffix(strings.Repeat("1,", 40), ",")+"]")
	rec := &sizeRecorder{Allocator: DefaultAllocator}
	out, err := NewFactory(rec).Stringify(v, "", 0)
	require.NoError(t, err)
	assert.Len(t, out, 81)
	assert.Equal(t, []int{32, 48, 80, 128}, rec.sizes)
	assert.Equal(t, 3, rec.freed)

	// 单次写入超过 1.5 倍时按需求取整到 16
	rec = &sizeRecorder{Allocator: DefaultAllocator}
	_, err = NewFactory(rec).Stringify(NewString(strings.Repeat("a", 100)), "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{112}, rec.sizes)
}

func TestStringifyNoMemory(t *testing.T) {
	v := mustParse(t, `{"a":"`+strings.Repeat("x", 64)+`"}`)
	_, err := NewFactory(Limit(nil, 0)).Stringify(v, "", 0)
	assert.ErrorIs(t, err, ErrNoMemory)
	_, err = NewFactory(Limit(nil, 1)).Stringify(v, "", 0)
	assert.ErrorIs(t, err, ErrNoMemory)

	_, err = Stringify(nil, "", 0)
	assert.ErrorIs(t, err, ErrInvalidUsage)
}

func TestStringifyRoundTrip(t *testing.T) {
	docs := []string{
		`{"a":[1,2.5,-3e-5,{"b":null}],"c":"x\ny\t\"q\"","d":true,"e":false}`,
		`[[],{},"",0,"\u00e9\ud83d\ude00",{"dup":1,"dup":2}]`,
		`"\u0001\u001f"`,
		`123456.789`,
	}
	flagSets := []Flags{0, FlagSpaces, FlagIndent, FlagIndent | FlagSpaces, FlagEscapeNonASCII, FlagEscapeNonBMP | FlagSpaces}
	for _, doc := range docs {
		v := mustParse(t, doc)
		for _, fl := range flagSets {
			out, err := Stringify(v, "  ", fl)
			require.NoError(t, err)

			again, err := quietParser().Parse(out)
			require.NoError(t, err, "%s", out)
			if diff := cmp.Diff(v.Interface(), again.Interface()); diff != "" {
				t.Errorf("round trip %q flags %d (-want +got):\n%s", doc, fl, diff)
			}
			assert.Equal(t, v.Len(), again.Len())

			// 第三方解码器应得到相同结果
			var ref any
			require.NoError(t, gojson.Unmarshal(out, &ref))
			if diff := cmp.Diff(v.Interface(), ref); diff != "" {
				t.Errorf("go-json decode %q flags %d (-yakjson +go-json):\n%s", doc, fl, diff)
			}
		}
	}
}

func TestMarshalJSONEmbeds(t *testing.T) {
	v := mustParse(t, `{"b":[1,2],"a":"x"}`)
	out, err := stdjson.Marshal(map[string]any{"doc": v})
	require.NoError(t, err)
	assert.Equal(t, `{"doc":{"b":[1,2],"a":"x"}}`, string(out))

	var nilValue *Value
	out, err = nilValue.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
	assert.Equal(t, `{"b":[1,2],"a":"x"}`, v.String())
}

func BenchmarkStringify(b *testing.B) {
	v, err := NewParser(WithErrorStream(nil)).ParseString(`{"user":{"name":"yak","tags":["a","b","c"],"age":3},"items":[1,2,3,4,5,6,7,8,9,10],"ok":true}`)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Stringify(v, "", 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkStringifyGoJSON(b *testing.B) {
	var x any
	if err := gojson.Unmarshal([]byte(`{"user":{"name":"yak","tags":["a","b","c"],"age":3},"items":[1,2,3,4,5,6,7,8,9,10],"ok":true}`), &x); err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := gojson.Marshal(x); err != nil {
			b.Fatal(err)
		}
	}
}
