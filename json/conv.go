package json

import (
	"encoding"
	"encoding/base64"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// ─── Go 值 → Value ───

// FromInterface 用默认分配器将 Go 值转换为值树
func FromInterface(x any) (*Value, error) { return defaultFactory.FromInterface(x) }

// FromInterface 将 Go 值转换为值树
//
// 支持:
//   - 基础类型: string, bool, int*, uint*, float*
//   - 复合类型: struct, map[string]T, slice, array, pointer, interface
//   - *Value: 深拷贝
//   - encoding.TextMarshaler: 作为字符串
//   - struct tag: `json:"name,omitempty"`、`json:"-"` 跳过
//
// map 按键排序；[]byte 编码为 base64 字符串；NaN/Inf 返回 ErrUnsupportedNumber。
// 失败时已构建的部分全部释放。
func (f *Factory) FromInterface(x any) (*Value, error) {
	return f.fromReflect(reflect.ValueOf(x), 0)
}

var (
	valuePtrType      = reflect.TypeOf((*Value)(nil))
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
)

func (f *Factory) fromReflect(rv reflect.Value, depth int) (*Value, error) {
	if depth > MaxMarshalDepth {
		return nil, ErrMaxDepth
	}
	if !rv.IsValid() {
		return f.must(f.NewNull())
	}
	if rv.Type() == valuePtrType && rv.CanInterface() {
		if rv.IsNil() {
			return f.must(f.NewNull())
		}
		return f.Clone(rv.Interface().(*Value))
	}
	if k := rv.Kind(); k != reflect.Pointer && k != reflect.Interface &&
		rv.CanInterface() && rv.Type().Implements(textMarshalerType) {
		b, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return nil, err
		}
		return f.must(f.NewStringBytes(b))
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return f.must(f.NewNull())
		}
		return f.fromReflect(rv.Elem(), depth+1)
	case reflect.Bool:
		return f.must(f.NewBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return f.must(f.NewNumber(float64(rv.Int())))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return f.must(f.NewNumber(float64(rv.Uint())))
	case reflect.Float32, reflect.Float64:
		n := rv.Float()
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, ErrUnsupportedNumber
		}
		return f.must(f.NewNumber(n))
	case reflect.String:
		return f.must(f.NewString(rv.String()))
	case reflect.Slice:
		if rv.IsNil() {
			return f.must(f.NewNull())
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return f.must(f.NewString(base64.StdEncoding.EncodeToString(rv.Bytes())))
		}
		return f.fromArray(rv, depth)
	case reflect.Array:
		return f.fromArray(rv, depth)
	case reflect.Map:
		if rv.IsNil() {
			return f.must(f.NewNull())
		}
		if rv.Type().Key().Kind() != reflect.String {
			return nil, ErrUnsupportedType
		}
		return f.fromMap(rv, depth)
	case reflect.Struct:
		return f.fromStruct(rv, depth)
	default:
		return nil, ErrUnsupportedType
	}
}

func (f *Factory) must(v *Value) (*Value, error) {
	if v == nil {
		return nil, ErrNoMemory
	}
	return v, nil
}

func (f *Factory) fromArray(rv reflect.Value, depth int) (*Value, error) {
	arr := f.NewArray()
	if arr == nil {
		return nil, ErrNoMemory
	}
	for i := 0; i < rv.Len(); i++ {
		e, err := f.fromReflect(rv.Index(i), depth+1)
		if err == nil && !f.AddElement(arr, e) {
			_ = f.Free(e)
			err = ErrNoMemory
		}
		if err != nil {
			_ = f.Free(arr)
			return nil, err
		}
	}
	return arr, nil
}

func (f *Factory) fromMap(rv reflect.Value, depth int) (*Value, error) {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	obj := f.NewObject()
	if obj == nil {
		return nil, ErrNoMemory
	}
	for _, k := range keys {
		if err := f.addMember(obj, k.String(), rv.MapIndex(k), depth); err != nil {
			_ = f.Free(obj)
			return nil, err
		}
	}
	return obj, nil
}

func (f *Factory) fromStruct(rv reflect.Value, depth int) (*Value, error) {
	obj := f.NewObject()
	if obj == nil {
		return nil, ErrNoMemory
	}
	for _, fi := range getStructFields(rv.Type()) {
		fv, ok := fieldByIndex(rv, fi.index)
		if !ok || (fi.omitempty && isZeroValue(fv)) {
			continue
		}
		if err := f.addMember(obj, fi.name, fv, depth); err != nil {
			_ = f.Free(obj)
			return nil, err
		}
	}
	return obj, nil
}

func (f *Factory) addMember(obj *Value, name string, rv reflect.Value, depth int) error {
	v, err := f.fromReflect(rv, depth+1)
	if err != nil {
		return err
	}
	if !f.AddPairString(obj, name, v) {
		_ = f.Free(v)
		return ErrNoMemory
	}
	return nil
}

// fieldByIndex 沿嵌入字段取值，经过 nil 嵌入指针时返回 false
func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return reflect.Value{}, false
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, true
}

// ─── Struct 字段缓存 ───

type structFieldInfo struct {
	name      string
	index     []int
	omitempty bool
}

var structCache sync.Map // map[reflect.Type][]structFieldInfo

func getStructFields(t reflect.Type) []structFieldInfo {
	if cached, ok := structCache.Load(t); ok {
		return cached.([]structFieldInfo)
	}
	fields := buildStructFields(t, map[reflect.Type]bool{t: true})
	structCache.Store(t, fields)
	return fields
}

// buildStructFields 展开字段列表；path 为当前嵌入链上的类型，重复出现的嵌入类型不再展开
func buildStructFields(t reflect.Type, path map[reflect.Type]bool) []structFieldInfo {
	var fields []structFieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		// 匿名嵌入结构体展开
		if sf.Anonymous && tag == "" {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if path[et] {
					continue
				}
				path[et] = true
				for _, ef := range buildStructFields(et, path) {
					ef.index = append([]int{i}, ef.index...)
					fields = append(fields, ef)
				}
				delete(path, et)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, structFieldInfo{
			name:      name,
			index:     []int{i},
			omitempty: strings.Contains(opts, "omitempty"),
		})
	}
	return fields
}

// isZeroValue omitempty 判定（与 encoding/json 一致，struct 不省略）
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// ─── 深拷贝 ───

// Clone 深拷贝 v（结果为顶层节点）
func (f *Factory) Clone(v *Value) (*Value, error) {
	if v == nil || v.t == TypeUnspecified {
		return nil, ErrInvalidUsage
	}
	var c *Value
	switch v.t {
	case TypeObject:
		c = f.NewObject()
		if c == nil {
			return nil, ErrNoMemory
		}
		for i := range v.pairs {
			e, err := f.Clone(v.pairs[i].val)
			if err == nil && !f.AddPairString(c, b2s(v.pairs[i].name), e) {
				_ = f.Free(e)
				err = ErrNoMemory
			}
			if err != nil {
				_ = f.Free(c)
				return nil, err
			}
		}
		return c, nil
	case TypeArray:
		c = f.NewArray()
		if c == nil {
			return nil, ErrNoMemory
		}
		for _, e := range v.elems {
			ce, err := f.Clone(e)
			if err == nil && !f.AddElement(c, ce) {
				_ = f.Free(ce)
				err = ErrNoMemory
			}
			if err != nil {
				_ = f.Free(c)
				return nil, err
			}
		}
		return c, nil
	case TypeString:
		c = f.NewStringBytes(v.s)
	case TypeNumber:
		c = f.NewNumber(v.n)
	default:
		c = f.newValue(v.t)
	}
	return f.must(c)
}

// ─── Value → Go 值 ───

// Interface 转换为 Go 值
//
// 对象 → map[string]any（重复键以最后一个为准），数组 → []any，
// 字符串 → string，数字 → float64，true/false → bool，null → nil。
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.t {
	case TypeObject:
		m := make(map[string]any, len(v.pairs))
		for i := range v.pairs {
			m[string(v.pairs[i].name)] = v.pairs[i].val.Interface()
		}
		return m
	case TypeArray:
		a := make([]any, len(v.elems))
		for i, e := range v.elems {
			a[i] = e.Interface()
		}
		return a
	case TypeString:
		return string(v.s)
	case TypeNumber:
		return v.n
	case TypeTrue:
		return true
	case TypeFalse:
		return false
	default:
		return nil
	}
}
