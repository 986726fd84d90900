// Package json JSON 文档模型：解析、构建、RFC 6901 指针查询与序列化
//
// 设计要点:
//   - 有序文档树: 对象成员保持出现顺序，重复键全部保留
//   - 分配器可插拔: 所有节点与缓冲经 Allocator 分配，Free 递归释放
//   - 会话式解析: Parser 记录位置/深度/状态，出错后仍可检查
//   - 错误不丢树: 解析失败时返回已构建的部分树，由调用方决定释放
//
// 致谢 (Acknowledgments):
//
//	索引模式递归下降、字符串快路径扫描、objFind 长度预判比较
//	沿用 valyala/fastjson、buger/jsonparser 的思路，均为独立重写。
//
// 用法:
//
//	p := json.NewParser(json.WithMaxDepth(64))
//	v, err := p.Parse(data)
//	if err != nil {
//	    line, col := p.LineCol()
//	    ...
//	}
//	name, _ := json.QueryString(v, "/user/name")
//	out, _ := json.Stringify(v, "  ", json.FlagIndent|json.FlagSpaces)
package json

import (
	"fmt"
	"unsafe"
)

// DefaultMaxDepth 默认最大嵌套深度（深度恰好等于上限仍可解析）
const DefaultMaxDepth = 128

// MaxMarshalDepth FromInterface 反射递归最大深度（防自引用指针链）
const MaxMarshalDepth = 1000

// DefaultErrorFormat 错误流每行前缀模板，依次填入行号、列号
const DefaultErrorFormat = "yakjson:%d:%d: "

// ─── 错误 ───

type jsonError string

func (e jsonError) Error() string { return string(e) }

const (
	// 使用错误
	ErrInvalidUsage jsonError = "json: invalid usage"
	ErrEmptyInput   jsonError = "json: empty input"
	ErrNotReset     jsonError = "json: parser must be reset before reuse"

	// 资源与限制
	ErrNoMemory jsonError = "json: allocation failed"
	ErrMaxDepth jsonError = "json: max nesting depth exceeded"

	// 语法
	ErrExpectingValue     jsonError = "json: expecting value"
	ErrExpectingQuote     jsonError = "json: expecting '\"'"
	ErrExpectingColon     jsonError = "json: expecting ':'"
	ErrExpectingComma     jsonError = "json: expecting ',' or '}'"
	ErrExpectingCommaArr  jsonError = "json: expecting ',' or ']'"
	ErrExpectingNumber    jsonError = "json: expecting number"
	ErrNumberRange        jsonError = "json: number out of range"
	ErrUnterminatedString jsonError = "json: unterminated string"
	ErrControlChar        jsonError = "json: control character in string"
	ErrTrailingData       jsonError = "json: trailing data after value"

	// 转义
	ErrInvalidEscape    jsonError = "json: invalid escape"
	ErrTruncatedEscape  jsonError = "json: truncated escape"
	ErrInvalidUnicode   jsonError = "json: invalid \\u escape"
	ErrInvalidSurrogate jsonError = "json: unpaired surrogate"

	// 指针查询
	ErrInvalidPointer jsonError = "json: invalid pointer"
	ErrNotFound       jsonError = "json: not found"
	ErrTypeMismatch   jsonError = "json: type mismatch"
	ErrInvalidIndex   jsonError = "json: invalid array index"

	// 树与序列化
	ErrCorruptTree       jsonError = "json: corrupt tree"
	ErrUnsupportedNumber jsonError = "json: unsupported number"
	ErrUnsupportedType   jsonError = "json: unsupported type"
)

// ParseError 解析错误（带位置）
//
// Err 为哨兵错误，可用 errors.Is 判断；Line 从 0 开始计数。
type ParseError struct {
	Offset int
	Line   uint
	Column uint
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%v at %d:%d (offset %d)", e.Err, e.Line, e.Column, e.Offset)
	}
	return fmt.Sprintf("%v: %s at %d:%d (offset %d)", e.Err, e.Msg, e.Line, e.Column, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Err }

// detail 写入错误流的消息正文（前缀由模板给出）
func (e *ParseError) detail() string {
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + ": " + e.Msg
}

// EscapeError 字符串解转义错误，Offset 相对于字符串内容起点
type EscapeError struct {
	Offset int
	Byte   byte
	Err    error
}

func (e *EscapeError) Error() string {
	if e.Byte != 0 {
		return fmt.Sprintf("%v %q at offset %d", e.Err, e.Byte, e.Offset)
	}
	return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
}

func (e *EscapeError) Unwrap() error { return e.Err }

// ─── 零拷贝转换 ───

// s2b 零拷贝 string → []byte（只读）
func s2b(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// b2s 零拷贝 []byte → string
func b2s(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}
