package json

import (
	"math"
	"strconv"
)

// Flags 序列化选项，可按位组合
type Flags uint8

const (
	FlagDefault        Flags = 0
	FlagSpaces         Flags = 1 << 0 // ':' 后加空格；无缩进时 ',' 后加空格
	FlagIndent         Flags = 1 << 1 // 换行并按层级缩进
	FlagEscapeNonBMP   Flags = 1 << 2 // BMP 之外的字符写为 \u 代理对
	FlagEscapeNonASCII Flags = 1 << 3 // 所有非 ASCII 字符写为 \uXXXX
)

const (
	stringifyInitCap = 32
	maxNumberLen     = 128
)

// Stringify 用默认分配器序列化 v
//
// indent 为空时缩进单位为 "\t"（仅 FlagIndent 时生效）。
func Stringify(v *Value, indent string, flags Flags) ([]byte, error) {
	return defaultFactory.Stringify(v, indent, flags)
}

// Stringify 序列化 v，输出缓冲由 f 的分配器分配
//
// 返回切片之后紧跟一个 0 字节（位于 cap 之内），便于交给要求结尾 NUL 的调用方。
func (f *Factory) Stringify(v *Value, indent string, flags Flags) ([]byte, error) {
	if v == nil {
		return nil, ErrInvalidUsage
	}
	if indent == "" {
		indent = "\t"
	}
	w := stringifier{a: f.a, indent: indent, flags: flags}
	w.value(v, 0)
	if w.err == nil {
		w.reserve(1)
	}
	if w.err != nil {
		if w.buf != nil {
			f.a.FreeBytes(w.buf)
		}
		return nil, w.err
	}
	n := len(w.buf)
	w.buf = append(w.buf, 0)
	return w.buf[:n], nil
}

// MarshalJSON 紧凑序列化，nil 输出 null
func (v *Value) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return Stringify(v, "", FlagDefault)
}

// String 紧凑 JSON 文本，失败返回空串
func (v *Value) String() string {
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

// stringifier 单次序列化状态，错误粘滞: 出错后所有写入变为 no-op
type stringifier struct {
	a       Allocator
	buf     []byte
	tmp     []byte
	indent  string
	flags   Flags
	err     error
	scratch [maxNumberLen + 32]byte
}

// reserve 保证剩余容量 >= n
//
// 首次 32 字节；之后按 1.5 倍增长并向上取整到 16；仍不足则按需求取整到 16。
// 新缓冲拷贝完成后才释放旧缓冲。
func (w *stringifier) reserve(n int) {
	need := len(w.buf) + n
	if need <= cap(w.buf) {
		return
	}
	nc := stringifyInitCap
	if c := cap(w.buf); c > 0 {
		nc = align16(c + (c+1)/2)
	}
	if nc < need {
		nc = align16(need)
	}
	nb := w.a.MakeBytes(nc)
	if nb == nil {
		w.err = ErrNoMemory
		return
	}
	nb = nb[:copy(nb, w.buf)]
	old := w.buf
	w.buf = nb
	if old != nil {
		w.a.FreeBytes(old)
	}
}

func align16(n int) int { return (n + 15) &^ 15 }

func (w *stringifier) write(b []byte) {
	if w.err != nil {
		return
	}
	w.reserve(len(b))
	if w.err == nil {
		w.buf = append(w.buf, b...)
	}
}

func (w *stringifier) writeString(s string) { w.write(s2b(s)) }

func (w *stringifier) writeByte(c byte) {
	if w.err != nil {
		return
	}
	w.reserve(1)
	if w.err == nil {
		w.buf = append(w.buf, c)
	}
}

func (w *stringifier) newline(depth int) {
	if w.flags&FlagIndent == 0 {
		return
	}
	w.writeByte('\n')
	for i := 0; i < depth; i++ {
		w.writeString(w.indent)
	}
}

func (w *stringifier) comma() {
	switch {
	case w.flags&FlagIndent != 0:
		w.writeByte(',')
	case w.flags&FlagSpaces != 0:
		w.writeString(", ")
	default:
		w.writeByte(',')
	}
}

func (w *stringifier) quoted(s []byte) {
	w.tmp = AppendEscaped(w.tmp[:0], s, w.flags)
	w.write(w.tmp)
}

func (w *stringifier) number(f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		w.err = ErrUnsupportedNumber
		return
	}
	b := strconv.AppendFloat(w.scratch[:0], f, 'g', -1, 64)
	if len(b) > maxNumberLen {
		w.err = ErrUnsupportedNumber
		return
	}
	w.write(b)
}

func (w *stringifier) value(v *Value, depth int) {
	if w.err != nil {
		return
	}
	switch v.t {
	case TypeObject:
		if len(v.pairs) == 0 {
			w.writeString("{}")
			return
		}
		w.writeByte('{')
		for i := range v.pairs {
			if i > 0 {
				w.comma()
			}
			w.newline(depth + 1)
			p := &v.pairs[i]
			if p.val == nil {
				w.err = ErrCorruptTree
				return
			}
			w.quoted(p.name)
			w.writeByte(':')
			if w.flags&FlagSpaces != 0 {
				w.writeByte(' ')
			}
			w.value(p.val, depth+1)
		}
		w.newline(depth)
		w.writeByte('}')
	case TypeArray:
		if len(v.elems) == 0 {
			w.writeString("[]")
			return
		}
		w.writeByte('[')
		for i, e := range v.elems {
			if i > 0 {
				w.comma()
			}
			w.newline(depth + 1)
			if e == nil {
				w.err = ErrCorruptTree
				return
			}
			w.value(e, depth+1)
		}
		w.newline(depth)
		w.writeByte(']')
	case TypeString:
		w.quoted(v.s)
	case TypeNumber:
		w.number(v.n)
	case TypeTrue:
		w.writeString("true")
	case TypeFalse:
		w.writeString("false")
	case TypeNull:
		w.writeString("null")
	default:
		w.err = ErrCorruptTree
	}
}
