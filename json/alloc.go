package json

import (
	"sync"

	"github.com/uniyakcom/yakjson/internal/arena"
)

// Allocator 节点与缓冲分配器
//
// 所有 Make/New 返回 nil 表示分配失败，调用方据此返回 ErrNoMemory。
// MakeValues / MakePairs 返回 len 0、cap n 的切片；MakeBytes 返回 len n。
// Free 系列接收此前由同一分配器返回的对象。
type Allocator interface {
	NewValue() *Value
	FreeValue(v *Value)
	MakeBytes(n int) []byte
	FreeBytes(b []byte)
	MakeValues(n int) []*Value
	FreeValues(vs []*Value)
	MakePairs(n int) []Pair
	FreePairs(ps []Pair)
}

// DefaultAllocator 堆分配，释放交给 GC
var DefaultAllocator Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) NewValue() *Value           { return new(Value) }
func (heapAllocator) FreeValue(*Value)           {}
func (heapAllocator) MakeBytes(n int) []byte     { return make([]byte, n) }
func (heapAllocator) FreeBytes([]byte)           {}
func (heapAllocator) MakeValues(n int) []*Value  { return make([]*Value, 0, n) }
func (heapAllocator) FreeValues([]*Value)        {}
func (heapAllocator) MakePairs(n int) []Pair     { return make([]Pair, 0, n) }
func (heapAllocator) FreePairs([]Pair)           {}

// ─── PoolAllocator ───

// PoolAllocator 通过 sync.Pool 复用节点与容器存储，适合反复解析同类文档
//
// 并发安全；已释放节点随时可能被复用，释放后不得再访问。
type PoolAllocator struct {
	values sync.Pool
	slots  sync.Pool // *[]*Value，cap == 8
	pairs  sync.Pool // *[]Pair，cap == 8
}

// NewPoolAllocator 创建节点池
func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{
		values: sync.Pool{New: func() any { return new(Value) }},
	}
}

func (p *PoolAllocator) NewValue() *Value { return p.values.Get().(*Value) }

func (p *PoolAllocator) FreeValue(v *Value) {
	*v = Value{}
	p.values.Put(v)
}

func (p *PoolAllocator) MakeBytes(n int) []byte { return make([]byte, n) }
func (p *PoolAllocator) FreeBytes([]byte)       {}

// 首次扩容固定为 initialCap，只池化这一档
func (p *PoolAllocator) MakeValues(n int) []*Value {
	if n == initialCap {
		if sp, ok := p.slots.Get().(*[]*Value); ok {
			return (*sp)[:0]
		}
	}
	return make([]*Value, 0, n)
}

func (p *PoolAllocator) FreeValues(vs []*Value) {
	if cap(vs) != initialCap {
		return
	}
	vs = vs[:cap(vs)]
	clear(vs)
	p.slots.Put(&vs)
}

func (p *PoolAllocator) MakePairs(n int) []Pair {
	if n == initialCap {
		if pp, ok := p.pairs.Get().(*[]Pair); ok {
			return (*pp)[:0]
		}
	}
	return make([]Pair, 0, n)
}

func (p *PoolAllocator) FreePairs(ps []Pair) {
	if cap(ps) != initialCap {
		return
	}
	ps = ps[:cap(ps)]
	clear(ps)
	p.pairs.Put(&ps)
}

// ─── ArenaAllocator ───

// ArenaAllocator 批量 slab 分配，单个释放为 no-op，整体 Reset 回收
//
// 非并发安全：一个 ArenaAllocator 只供一个 Parser 会话使用。
// Reset 后此前分配的所有树失效。
type ArenaAllocator struct {
	values *arena.Slab[Value]
	slots  *arena.Slab[*Value]
	pairs  *arena.Slab[Pair]
	bytes  *arena.Bytes
}

// NewArenaAllocator 创建 arena 分配器
func NewArenaAllocator() *ArenaAllocator {
	return &ArenaAllocator{
		values: arena.NewSlab[Value](256),
		slots:  arena.NewSlab[*Value](1024),
		pairs:  arena.NewSlab[Pair](512),
		bytes:  arena.NewBytes(0),
	}
}

func (a *ArenaAllocator) NewValue() *Value          { return a.values.One() }
func (a *ArenaAllocator) FreeValue(*Value)          {}
func (a *ArenaAllocator) MakeBytes(n int) []byte    { return a.bytes.Alloc(n) }
func (a *ArenaAllocator) FreeBytes([]byte)          {}
func (a *ArenaAllocator) MakeValues(n int) []*Value { return a.slots.Take(n)[:0] }
func (a *ArenaAllocator) FreeValues([]*Value)       {}
func (a *ArenaAllocator) MakePairs(n int) []Pair    { return a.pairs.Take(n)[:0] }
func (a *ArenaAllocator) FreePairs([]Pair)          {}

// Reset 回收全部 chunk
func (a *ArenaAllocator) Reset() {
	a.values.Reset()
	a.slots.Reset()
	a.pairs.Reset()
	a.bytes.Reset()
}

// ─── 包装器 ───

// Limit 包装 a：前 n 次分配正常，之后一律失败
//
// 用于限制单文档资源占用，以及验证分配失败路径。非并发安全。
func Limit(a Allocator, n int) Allocator {
	if a == nil {
		a = DefaultAllocator
	}
	return &limitAllocator{Allocator: a, left: n}
}

type limitAllocator struct {
	Allocator
	left int
}

func (l *limitAllocator) take() bool {
	if l.left <= 0 {
		return false
	}
	l.left--
	return true
}

func (l *limitAllocator) NewValue() *Value {
	if !l.take() {
		return nil
	}
	return l.Allocator.NewValue()
}

func (l *limitAllocator) MakeBytes(n int) []byte {
	if !l.take() {
		return nil
	}
	return l.Allocator.MakeBytes(n)
}

func (l *limitAllocator) MakeValues(n int) []*Value {
	if !l.take() {
		return nil
	}
	return l.Allocator.MakeValues(n)
}

func (l *limitAllocator) MakePairs(n int) []Pair {
	if !l.take() {
		return nil
	}
	return l.Allocator.MakePairs(n)
}

// NoFree 包装 a：只分配不释放，内存由 a 的持有者统一回收
func NoFree(a Allocator) Allocator {
	if a == nil {
		a = DefaultAllocator
	}
	return noFree{Allocator: a}
}

type noFree struct{ Allocator }

func (noFree) FreeValue(*Value)    {}
func (noFree) FreeBytes([]byte)    {}
func (noFree) FreeValues([]*Value) {}
func (noFree) FreePairs([]Pair)    {}
