package yakjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniyakcom/yakjson/json"
)

func TestParseQueryStringify(t *testing.T) {
	v, err := ParseString(`{"foo":["bar","baz"],"":0,"a/b":1}`)
	require.NoError(t, err)
	defer Free(v)

	hit, err := Query(v, "/foo/1")
	require.NoError(t, err)
	assert.Equal(t, "baz", hit.Str())

	out, err := Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, `{"foo":["bar","baz"],"":0,"a/b":1}`, string(out))

	out, err = StringifyIndent(hit.Parent(), "  ")
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"bar\",\n  \"baz\"\n]", string(out))

	out, err = StringifyFlags(v.Member("foo"), "", FlagSpaces)
	require.NoError(t, err)
	assert.Equal(t, `["bar", "baz"]`, string(out))
}

func TestParseErrors(t *testing.T) {
	v, err := ParseString(`[1,2`)
	assert.Nil(t, v)
	assert.ErrorIs(t, err, json.ErrExpectingCommaArr)

	_, err = ParseString(`[[1]]`, json.WithMaxDepth(1))
	assert.ErrorIs(t, err, json.ErrMaxDepth)

	_, err = Parse(nil)
	assert.ErrorIs(t, err, json.ErrEmptyInput)
}

func TestNew(t *testing.T) {
	v, err := New(map[string]any{"b": []int{1}, "a": true})
	require.NoError(t, err)
	out, err := Stringify(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":true,"b":[1]}`, string(out))
	assert.NoError(t, Free(v))
}

// countingAllocator 记录未释放的节点数
type countingAllocator struct {
	json.Allocator
	live int
}

func (c *countingAllocator) NewValue() *Value {
	c.live++
	return c.Allocator.NewValue()
}

func (c *countingAllocator) FreeValue(v *Value) {
	c.live--
	c.Allocator.FreeValue(v)
}

func TestCustomAllocatorFreedByFactory(t *testing.T) {
	ca := &countingAllocator{Allocator: json.DefaultAllocator}
	p := NewParser(json.WithErrorStream(nil), json.WithAllocator(ca))
	defer p.Close()

	v, err := p.ParseString(`{"a":[1,2,{"b":null}]}`)
	require.NoError(t, err)
	require.Equal(t, 6, ca.live)
	require.NoError(t, p.Factory().Free(v))
	assert.Equal(t, 0, ca.live)

	// 失败时 Parse 通过会话的 Factory 释放部分树
	_, err = ParseString(`{"a":[1,2,{"b":nul`, json.WithAllocator(ca))
	require.Error(t, err)
	assert.Equal(t, 0, ca.live)
}

func TestNewParser(t *testing.T) {
	p := NewParser(json.WithErrorStream(nil))
	defer p.Close()
	v, err := p.ParseString(`null`)
	require.NoError(t, err)
	assert.True(t, v.IsNull())
	assert.True(t, p.IsComplete())
}
