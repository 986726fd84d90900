// Package yakjson 统一API入口
//
// 解析、查询、序列化的零配置封装；需要分配器、深度、诊断输出等控制时
// 直接使用 json 子包的 Parser 会话。
package yakjson

import (
	"github.com/uniyakcom/yakjson/json"
)

// Value 导出Value类型
type Value = json.Value

// Type 导出Type类型
type Type = json.Type

// Parser 导出Parser类型
type Parser = json.Parser

// Option 导出解析选项
type Option = json.Option

// Flags 导出序列化标志
type Flags = json.Flags

// Pointer 导出预解析的 JSON Pointer
type Pointer = json.Pointer

// 序列化标志
const (
	FlagDefault        = json.FlagDefault
	FlagSpaces         = json.FlagSpaces
	FlagIndent         = json.FlagIndent
	FlagEscapeNonBMP   = json.FlagEscapeNonBMP
	FlagEscapeNonASCII = json.FlagEscapeNonASCII
)

// ═══════════════════════════════════════════════════════════════════
// 第零层：Parse() 零配置入口
// ═══════════════════════════════════════════════════════════════════

// Parse 解析一份 JSON 文本
//
// 不写诊断到 stderr；失败时部分树已释放，只返回错误。
// 结果用 Free 释放；opts 含 json.WithAllocator 时 Free 不适用，
// 改用 NewParser 并通过 p.Factory().Free 释放。
//
// 用法:
//
//	v, err := yakjson.Parse(data)
//	if err != nil { ... }
//	defer yakjson.Free(v)
func Parse(data []byte, opts ...Option) (*Value, error) {
	p := json.NewParser(json.WithErrorStream(nil))
	p.Configure(opts...)
	defer p.Close()

	v, err := p.Parse(data)
	if err != nil {
		if v != nil {
			_ = p.Factory().Free(v)
		}
		return nil, err
	}
	return v, nil
}

// ParseString 解析字符串
func ParseString(s string, opts ...Option) (*Value, error) {
	return Parse([]byte(s), opts...)
}

// Free 释放 Parse/New 得到的根节点（仅限默认分配器）
func Free(v *Value) error { return json.Free(v) }

// ═══════════════════════════════════════════════════════════════════
// 第一层：查询与序列化
// ═══════════════════════════════════════════════════════════════════

// Query 按 RFC 6901 JSON Pointer 查找节点
//
//	yakjson.Query(v, "/foo/0")
func Query(root *Value, ptr string) (*Value, error) {
	return json.QueryString(root, ptr)
}

// Stringify 紧凑输出
func Stringify(v *Value) ([]byte, error) {
	return json.Stringify(v, "", FlagDefault)
}

// StringifyIndent 缩进输出（indent 为空时用 "\t"），':' 后带空格
func StringifyIndent(v *Value, indent string) ([]byte, error) {
	return json.Stringify(v, indent, FlagIndent|FlagSpaces)
}

// StringifyFlags 自定义标志输出
func StringifyFlags(v *Value, indent string, flags Flags) ([]byte, error) {
	return json.Stringify(v, indent, flags)
}

// ═══════════════════════════════════════════════════════════════════
// 第二层：构造
// ═══════════════════════════════════════════════════════════════════

// New 由 Go 值构造树（map/slice/struct/标量，遵循 json tag）
func New(x any) (*Value, error) {
	return json.FromInterface(x)
}

// NewParser 创建解析会话（默认写诊断到 stderr）
func NewParser(opts ...Option) *Parser {
	return json.NewParser(opts...)
}
