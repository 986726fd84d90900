package json

import (
	"bytes"
	"math"
)

// Type JSON 值类型
type Type uint8

const (
	TypeUnspecified Type = iota // 零值 / 已释放节点
	TypeString                  // 字符串
	TypeNumber                  // 数字（float64）
	TypeObject                  // 对象
	TypeArray                   // 数组
	TypeTrue                    // true
	TypeFalse                   // false
	TypeNull                    // null
)

// String 返回类型名称
func (t Type) String() string {
	switch t {
	case TypeUnspecified:
		return "unspecified"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeTrue:
		return "true"
	case TypeFalse:
		return "false"
	case TypeNull:
		return "null"
	default:
		return "unknown"
	}
}

// Value JSON 值节点
//
// 节点及其缓冲均由 Allocator 分配，树由根节点独占:
//   - s: 字符串内容（已解转义，长度以切片为准，可含 0x00）
//   - pairs: 对象成员（出现顺序，重复键保留）
//   - elems: 数组元素
//   - parent/pt: 所在容器及其类型（顶层为 nil / TypeUnspecified）
type Value struct {
	s      []byte
	pairs  []Pair
	elems  []*Value
	parent *Value
	n      float64
	t      Type
	pt     Type
}

// Pair 对象成员
type Pair struct {
	name []byte
	val  *Value
}

// Name 成员名（已解转义）
func (p Pair) Name() []byte { return p.name }

// Value 成员值
func (p Pair) Value() *Value { return p.val }

// ─── 类型判断 ───

// Type 返回值类型，nil 视为 TypeUnspecified
func (v *Value) Type() Type {
	if v == nil {
		return TypeUnspecified
	}
	return v.t
}

// TypeName 类型名称
func (v *Value) TypeName() string { return v.Type().String() }

// Parent 所在容器，顶层返回 nil
func (v *Value) Parent() *Value {
	if v == nil {
		return nil
	}
	return v.parent
}

// ParentType 所在容器的类型，顶层返回 TypeUnspecified
func (v *Value) ParentType() Type {
	if v == nil {
		return TypeUnspecified
	}
	return v.pt
}

// IsNull 是否为 null
func (v *Value) IsNull() bool { return v != nil && v.t == TypeNull }

// IsObject 是否为对象
func (v *Value) IsObject() bool { return v != nil && v.t == TypeObject }

// IsArray 是否为数组
func (v *Value) IsArray() bool { return v != nil && v.t == TypeArray }

// IsString 是否为字符串
func (v *Value) IsString() bool { return v != nil && v.t == TypeString }

// IsNumber 是否为数字
func (v *Value) IsNumber() bool { return v != nil && v.t == TypeNumber }

// IsBool 是否为 true / false
func (v *Value) IsBool() bool { return v != nil && (v.t == TypeTrue || v.t == TypeFalse) }

// ─── 标量 ───

// Bytes 字符串内容（仅 TypeString），调用方不得修改
func (v *Value) Bytes() []byte {
	if v == nil || v.t != TypeString {
		return nil
	}
	return v.s
}

// Str 字符串内容的拷贝
func (v *Value) Str() string {
	if v == nil || v.t != TypeString {
		return ""
	}
	return string(v.s)
}

// Float64 数字值
func (v *Value) Float64() float64 {
	if v == nil || v.t != TypeNumber {
		return 0
	}
	return v.n
}

// Bool 布尔值，非布尔返回 false
func (v *Value) Bool() bool { return v != nil && v.t == TypeTrue }

// ─── 容器 ───

// Len 数组或对象的元素数量
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	switch v.t {
	case TypeArray:
		return len(v.elems)
	case TypeObject:
		return len(v.pairs)
	default:
		return 0
	}
}

// Cap 数组或对象当前存储容量
func (v *Value) Cap() int {
	if v == nil {
		return 0
	}
	switch v.t {
	case TypeArray:
		return cap(v.elems)
	case TypeObject:
		return cap(v.pairs)
	default:
		return 0
	}
}

// Index 数组第 i 个元素，越界或非数组返回 nil
func (v *Value) Index(i int) *Value {
	if v == nil || v.t != TypeArray || i < 0 || i >= len(v.elems) {
		return nil
	}
	return v.elems[i]
}

// PairAt 对象第 i 个成员
func (v *Value) PairAt(i int) (name []byte, val *Value) {
	if v == nil || v.t != TypeObject || i < 0 || i >= len(v.pairs) {
		return nil, nil
	}
	return v.pairs[i].name, v.pairs[i].val
}

// Member 对象中第一个名为 name 的成员
func (v *Value) Member(name string) *Value {
	if v == nil || v.t != TypeObject {
		return nil
	}
	return v.objFind(s2b(name))
}

// objFind 线性查找，先比长度再逐字节比较；重复键取第一个
func (v *Value) objFind(name []byte) *Value {
	for i := range v.pairs {
		p := &v.pairs[i]
		if len(p.name) == len(name) && bytes.Equal(p.name, name) {
			return p.val
		}
	}
	return nil
}

// ─── 遍历 ───

// ObjectEach 按存储顺序遍历对象成员，fn 返回 false 提前停止
func (v *Value) ObjectEach(fn func(name []byte, val *Value) bool) error {
	if v == nil || fn == nil || v.t != TypeObject {
		return ErrInvalidUsage
	}
	for i := range v.pairs {
		if !fn(v.pairs[i].name, v.pairs[i].val) {
			break
		}
	}
	return nil
}

// ArrayEach 按存储顺序遍历数组元素，fn 返回 false 提前停止
func (v *Value) ArrayEach(fn func(i int, val *Value) bool) error {
	if v == nil || fn == nil || v.t != TypeArray {
		return ErrInvalidUsage
	}
	for i, elem := range v.elems {
		if !fn(i, elem) {
			break
		}
	}
	return nil
}

// ─── 路径取值（类型不匹配返回零值） ───

// Get 按路径获取嵌套值
//
//	v.Get("user", "name")  // {"user":{"name":"..."}} 中的 name
//	v.Get("items", "0")    // 数组第 0 个元素
func (v *Value) Get(keys ...string) *Value {
	for _, key := range keys {
		if v == nil {
			return nil
		}
		switch v.t {
		case TypeObject:
			v = v.objFind(s2b(key))
		case TypeArray:
			idx, ok := parseIdx(key)
			if !ok || idx >= len(v.elems) {
				return nil
			}
			v = v.elems[idx]
		default:
			return nil
		}
	}
	return v
}

// GetString 获取字符串值: v.GetString("user", "name")
func (v *Value) GetString(keys ...string) string {
	return v.Get(keys...).Str()
}

// GetStringBytes 获取字符串内容（零拷贝）
func (v *Value) GetStringBytes(keys ...string) []byte {
	return v.Get(keys...).Bytes()
}

// GetFloat64 获取数字值
func (v *Value) GetFloat64(keys ...string) float64 {
	return v.Get(keys...).Float64()
}

// GetInt 获取整数值（截断小数；超出 int64 范围返回 0）
func (v *Value) GetInt(keys ...string) int {
	return int(v.GetInt64(keys...))
}

// GetInt64 获取 64 位整数值
func (v *Value) GetInt64(keys ...string) int64 {
	f := v.Get(keys...).Float64()
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// GetBool 获取布尔值
func (v *Value) GetBool(keys ...string) bool {
	return v.Get(keys...).Bool()
}

// ─── 辅助函数 ───

// parseIdx 解析数组下标: "0" 或无前导零的十进制
func parseIdx(s string) (int, bool) {
	if len(s) == 0 || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int(c - '0')
		if n > (math.MaxInt-d)/10 {
			return 0, false // 溢出
		}
		n = n*10 + d
	}
	return n, true
}
