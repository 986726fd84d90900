package json

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allocDoc = `{"name":"yak","list":[1,2,3,4,5,6,7,8,9,10,11,12],"nested":{"k":"v","arr":[[],[true]]}}`

func TestAllocators(t *testing.T) {
	allocators := map[string]Allocator{
		"default": DefaultAllocator,
		"pool":    NewPoolAllocator(),
		"arena":   NewArenaAllocator(),
		"nofree":  NoFree(nil),
		"limit":   Limit(nil, 1000),
	}
	for name, a := range allocators {
		t.Run(name, func(t *testing.T) {
			p := quietParser(WithAllocator(a))
			v, err := p.ParseString(allocDoc)
			require.NoError(t, err)
			assert.Equal(t, "yak", v.GetString("name"))
			assert.Equal(t, 12, v.Get("list").Len())
			assert.True(t, v.GetBool("nested", "arr", "1", "0"))

			out, err := p.Stringify(v, "", 0)
			require.NoError(t, err)
			assert.Equal(t, allocDoc, string(out))
			assert.NoError(t, p.Factory().Free(v))
		})
	}
}

func TestWithAllocatorNil(t *testing.T) {
	p := quietParser(WithAllocator(nil))
	assert.Equal(t, DefaultAllocator, p.Factory().Allocator())
}

func TestPoolAllocatorReuse(t *testing.T) {
	pa := NewPoolAllocator()
	f := NewFactory(pa)
	v := f.NewNumber(3)
	require.NotNil(t, v)
	require.NoError(t, f.Free(v))

	// 复用后的节点必须是干净的
	w := f.NewArray()
	assert.Equal(t, TypeArray, w.Type())
	assert.Equal(t, 0, w.Len())
	assert.Nil(t, w.Parent())

	vs := pa.MakeValues(initialCap)
	assert.Equal(t, 0, len(vs))
	assert.Equal(t, initialCap, cap(vs))
	vs = append(vs, w)
	pa.FreeValues(vs)
	again := pa.MakeValues(initialCap)
	assert.Equal(t, 0, len(again))
	for _, e := range again[:cap(again)] {
		assert.Nil(t, e)
	}
}

func TestPoolAllocatorConcurrent(t *testing.T) {
	pa := NewPoolAllocator()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p := quietParser(WithAllocator(pa))
				v, err := p.ParseString(allocDoc)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, "v", v.GetString("nested", "k"))
				assert.NoError(t, p.Factory().Free(v))
			}
		}()
	}
	wg.Wait()
}

func TestArenaAllocatorReset(t *testing.T) {
	a := NewArenaAllocator()
	p := quietParser(WithAllocator(a))
	for i := 0; i < 3; i++ {
		p.Reset()
		a.Reset()
		v, err := p.ParseString(allocDoc)
		require.NoError(t, err)
		assert.Equal(t, 12, v.Get("list").Len())
	}
}

func TestLimitAllocator(t *testing.T) {
	a := Limit(nil, 2)
	assert.NotNil(t, a.NewValue())
	assert.NotNil(t, a.MakeBytes(4))
	assert.Nil(t, a.MakeBytes(4))
	assert.Nil(t, a.MakePairs(8))
	assert.Nil(t, a.MakeValues(8))
	assert.Nil(t, a.NewValue())
}

func TestNoFreeSkipsRelease(t *testing.T) {
	ca := newCounting()
	f := NewFactory(NoFree(ca))
	arr := f.NewArray()
	require.True(t, f.AddElement(arr, f.NewString("x")))
	live := ca.live
	require.NoError(t, f.Free(arr))
	assert.Equal(t, live, ca.live)
}
