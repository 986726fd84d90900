package json

// initialCap 容器首次扩容容量，此后翻倍
const initialCap = 8

// Factory 通过 Allocator 构建与释放值树
//
// 同一棵树必须由同一个 Factory（同一个 Allocator）构建和释放。
type Factory struct {
	a Allocator
}

// NewFactory 创建 Factory，a 为 nil 时使用 DefaultAllocator
func NewFactory(a Allocator) *Factory {
	if a == nil {
		a = DefaultAllocator
	}
	return &Factory{a: a}
}

var defaultFactory = NewFactory(nil)

// Allocator 返回底层分配器
func (f *Factory) Allocator() Allocator { return f.a }

// ─── 构造 ───

func (f *Factory) newValue(t Type) *Value {
	v := f.a.NewValue()
	if v == nil {
		return nil
	}
	*v = Value{t: t}
	return v
}

// NewObject 空对象
func (f *Factory) NewObject() *Value { return f.newValue(TypeObject) }

// NewArray 空数组
func (f *Factory) NewArray() *Value { return f.newValue(TypeArray) }

// NewTrue true
func (f *Factory) NewTrue() *Value { return f.newValue(TypeTrue) }

// NewFalse false
func (f *Factory) NewFalse() *Value { return f.newValue(TypeFalse) }

// NewNull null
func (f *Factory) NewNull() *Value { return f.newValue(TypeNull) }

// NewBool true 或 false
func (f *Factory) NewBool(b bool) *Value {
	if b {
		return f.NewTrue()
	}
	return f.NewFalse()
}

// NewNumber 数字
func (f *Factory) NewNumber(n float64) *Value {
	v := f.newValue(TypeNumber)
	if v != nil {
		v.n = n
	}
	return v
}

// NewString 字符串（拷贝 s）
func (f *Factory) NewString(s string) *Value { return f.NewStringBytes(s2b(s)) }

// NewStringBytes 字符串（拷贝 b）
func (f *Factory) NewStringBytes(b []byte) *Value {
	buf := f.a.MakeBytes(len(b))
	if buf == nil {
		return nil
	}
	copy(buf, b)
	v := f.newStringOwned(buf)
	if v == nil {
		f.a.FreeBytes(buf)
	}
	return v
}

// newStringOwned 接管 buf 所有权
func (f *Factory) newStringOwned(buf []byte) *Value {
	v := f.newValue(TypeString)
	if v != nil {
		v.s = buf
	}
	return v
}

// ─── 追加 ───

// AddPair 向对象追加成员，name 的所有权移交给 obj
//
// obj/name/v 为 nil、obj 非对象、v 已挂在其它容器或分配失败时返回 false，
// 此时 obj 原有成员不受影响。
func (f *Factory) AddPair(obj *Value, name []byte, v *Value) bool {
	if obj == nil || name == nil || !attachable(obj, v) || obj.t != TypeObject {
		return false
	}
	if len(obj.pairs) == cap(obj.pairs) {
		ps := f.a.MakePairs(grow(cap(obj.pairs)))
		if ps == nil {
			return false
		}
		ps = append(ps, obj.pairs...)
		old := obj.pairs
		obj.pairs = ps
		if old != nil {
			f.a.FreePairs(old)
		}
	}
	obj.pairs = append(obj.pairs, Pair{name: name, val: v})
	v.parent, v.pt = obj, TypeObject
	return true
}

// AddPairString 向对象追加成员（拷贝 name）
func (f *Factory) AddPairString(obj *Value, name string, v *Value) bool {
	buf := f.a.MakeBytes(len(name))
	if buf == nil {
		return false
	}
	copy(buf, name)
	if !f.AddPair(obj, buf, v) {
		f.a.FreeBytes(buf)
		return false
	}
	return true
}

// AddElement 向数组追加元素，失败条件同 AddPair
func (f *Factory) AddElement(arr *Value, v *Value) bool {
	if !attachable(arr, v) || arr.t != TypeArray {
		return false
	}
	if len(arr.elems) == cap(arr.elems) {
		es := f.a.MakeValues(grow(cap(arr.elems)))
		if es == nil {
			return false
		}
		es = append(es, arr.elems...)
		old := arr.elems
		arr.elems = es
		if old != nil {
			f.a.FreeValues(old)
		}
	}
	arr.elems = append(arr.elems, v)
	v.parent, v.pt = arr, TypeArray
	return true
}

// attachable v 为未挂载的有效节点，且不是 c 的祖先（防成环）
func attachable(c, v *Value) bool {
	if c == nil || v == nil || v.parent != nil || v.t == TypeUnspecified {
		return false
	}
	for p := c; p != nil; p = p.parent {
		if p == v {
			return false
		}
	}
	return true
}

func grow(c int) int {
	if c == 0 {
		return initialCap
	}
	return c * 2
}

// ─── 释放 ───

// Free 递归释放 v 及其子树（后序：先子节点，字符串先释放缓冲）
//
// 先整体校验，结构不一致时返回 ErrCorruptTree 且不释放任何节点。
// 仍挂在容器上的节点不能单独释放；已释放节点再次释放返回 ErrInvalidUsage。
func (f *Factory) Free(v *Value) error {
	if v == nil || v.t == TypeUnspecified || v.parent != nil {
		return ErrInvalidUsage
	}
	if err := checkTree(v); err != nil {
		return err
	}
	f.free(v)
	return nil
}

func checkTree(v *Value) error {
	switch v.t {
	case TypeObject:
		for i := range v.pairs {
			p := &v.pairs[i]
			if p.name == nil || p.val == nil || p.val.parent != v {
				return ErrCorruptTree
			}
			if err := checkTree(p.val); err != nil {
				return err
			}
		}
	case TypeArray:
		for _, e := range v.elems {
			if e == nil || e.parent != v {
				return ErrCorruptTree
			}
			if err := checkTree(e); err != nil {
				return err
			}
		}
	case TypeString:
		if v.s == nil {
			return ErrCorruptTree
		}
	case TypeNumber, TypeTrue, TypeFalse, TypeNull:
	default:
		return ErrCorruptTree
	}
	return nil
}

func (f *Factory) free(v *Value) {
	switch v.t {
	case TypeObject:
		for i := range v.pairs {
			f.free(v.pairs[i].val)
			f.a.FreeBytes(v.pairs[i].name)
		}
		if v.pairs != nil {
			f.a.FreePairs(v.pairs)
		}
	case TypeArray:
		for _, e := range v.elems {
			f.free(e)
		}
		if v.elems != nil {
			f.a.FreeValues(v.elems)
		}
	case TypeString:
		f.a.FreeBytes(v.s)
	}
	*v = Value{}
	f.a.FreeValue(v)
}

// ─── 默认 Factory 快捷方式 ───

// NewObject 空对象（默认分配器）
func NewObject() *Value { return defaultFactory.NewObject() }

// NewArray 空数组（默认分配器）
func NewArray() *Value { return defaultFactory.NewArray() }

// NewString 字符串（默认分配器）
func NewString(s string) *Value { return defaultFactory.NewString(s) }

// NewStringBytes 字符串（默认分配器）
func NewStringBytes(b []byte) *Value { return defaultFactory.NewStringBytes(b) }

// NewNumber 数字（默认分配器）
func NewNumber(n float64) *Value { return defaultFactory.NewNumber(n) }

func NewTrue() *Value       { return defaultFactory.NewTrue() }
func NewFalse() *Value      { return defaultFactory.NewFalse() }
func NewNull() *Value       { return defaultFactory.NewNull() }
func NewBool(b bool) *Value { return defaultFactory.NewBool(b) }

// AddPair 见 Factory.AddPair
func AddPair(obj *Value, name string, v *Value) bool {
	return defaultFactory.AddPairString(obj, name, v)
}

// AddElement 见 Factory.AddElement
func AddElement(arr, v *Value) bool { return defaultFactory.AddElement(arr, v) }

// Free 见 Factory.Free
func Free(v *Value) error { return defaultFactory.Free(v) }
