// Package arena 提供按块增长的 slab 分配器
//
// 设计:
//   - 对象按 chunk 批量 make，分配时逐个切出，避免逐个 new
//   - 切片分配使用三下标切片限定 cap，append 不会越界写入相邻分配
//   - 不支持单独释放；Reset 丢弃全部 chunk，由 GC 回收
//   - 非并发安全（一个解析会话独占一个 arena）
package arena

const (
	// DefaultSlabSize Slab 默认 chunk 元素数
	DefaultSlabSize = 256
	// DefaultChunkBytes Bytes 默认 chunk 字节数
	DefaultChunkBytes = 64 * 1024
)

// Slab 类型化 slab 分配器
type Slab[T any] struct {
	chunk  []T
	off    int
	size   int
	chunks int
}

// NewSlab 创建 Slab，size <= 0 时使用 DefaultSlabSize
func NewSlab[T any](size int) *Slab[T] {
	if size <= 0 {
		size = DefaultSlabSize
	}
	return &Slab[T]{size: size}
}

// One 分配单个元素（零值）
func (s *Slab[T]) One() *T {
	if s.off >= len(s.chunk) {
		s.refill()
	}
	p := &s.chunk[s.off]
	s.off++
	return p
}

// Take 分配 n 个连续元素，len == cap == n
//
// n 超过 chunk 大小时单独 make，不污染当前 chunk。
func (s *Slab[T]) Take(n int) []T {
	if n <= 0 {
		return []T{}
	}
	if n > s.size {
		return make([]T, n)
	}
	if len(s.chunk)-s.off < n {
		s.refill()
	}
	b := s.chunk[s.off : s.off+n : s.off+n]
	s.off += n
	return b
}

// Chunks 返回已分配的 chunk 数
func (s *Slab[T]) Chunks() int { return s.chunks }

// Reset 丢弃全部 chunk
func (s *Slab[T]) Reset() {
	s.chunk = nil
	s.off = 0
	s.chunks = 0
}

func (s *Slab[T]) refill() {
	s.chunk = make([]T, s.size)
	s.off = 0
	s.chunks++
}

// Bytes 字节 bump 分配器（8 字节对齐）
type Bytes struct {
	buf    []byte
	off    int
	size   int
	chunks int
}

// NewBytes 创建字节分配器，size <= 0 时使用 DefaultChunkBytes
func NewBytes(size int) *Bytes {
	if size <= 0 {
		size = DefaultChunkBytes
	}
	return &Bytes{size: size}
}

// Alloc 分配 n 字节，len == n，cap 截断到对齐边界
func (a *Bytes) Alloc(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	aligned := (n + 7) &^ 7
	if aligned > a.size {
		return make([]byte, n)
	}
	if a.off+aligned > len(a.buf) {
		a.buf = make([]byte, a.size)
		a.off = 0
		a.chunks++
	}
	b := a.buf[a.off : a.off+n : a.off+aligned]
	a.off += aligned
	return b
}

// Chunks 返回已分配的 chunk 数
func (a *Bytes) Chunks() int { return a.chunks }

// Reset 丢弃全部 chunk
func (a *Bytes) Reset() {
	a.buf = nil
	a.off = 0
	a.chunks = 0
}
