package json

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Parser 解析会话
//
// 一次 Parse 对应一份输入；再次解析前须 Reset。
// 非并发安全，不同会话之间互不影响。
//
// 实现为索引模式递归下降: 直接在 src 上移动 pos，
// 字符串内容经 Unescape 拷贝进分配器缓冲，结果树不引用输入。
type Parser struct {
	src      []byte
	pos      int
	depth    int
	maxDepth int

	initializing bool
	complete     bool
	failed       bool
	closed       bool

	strict bool
	errOut io.Writer
	errFmt string
	log    logrus.FieldLogger
	f      *Factory
	err    error
}

// NewParser 创建解析会话
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxDepth: DefaultMaxDepth,
		errOut:   os.Stderr,
		errFmt:   DefaultErrorFormat,
		f:        defaultFactory,
	}
	p.Configure(opts...)
	p.initializing = true
	return p
}

// Configure 调整配置（不改变会话状态）
func (p *Parser) Configure(opts ...Option) {
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
}

// Factory 会话使用的 Factory（释放解析结果时使用）
func (p *Parser) Factory() *Factory { return p.f }

// Parse 解析一份完整 JSON 文本
//
// 成功时返回根节点。失败时返回已构建的部分树（可能为 nil）与 *ParseError，
// 部分树由调用方通过 Factory().Free 释放。顶层值之后只允许空白。
func (p *Parser) Parse(b []byte) (*Value, error) {
	if p == nil || p.closed {
		return nil, ErrInvalidUsage
	}
	if len(b) == 0 {
		return nil, ErrEmptyInput
	}
	if p.src != nil || p.complete || p.failed {
		return nil, ErrNotReset
	}
	p.src, p.pos, p.depth, p.err = b, 0, 0, nil

	v, err := p.parseValue()
	if err == nil {
		p.skipWS()
		if p.pos < len(p.src) {
			err = p.fail(ErrTrailingData, "unexpected %q", p.src[p.pos])
		}
	}
	if err != nil {
		return v, err
	}
	p.complete = true
	if p.log != nil {
		p.log.WithField("bytes", len(b)).Debug("json parsed")
	}
	return v, nil
}

// ParseString 解析字符串输入（零拷贝）
func (p *Parser) ParseString(s string) (*Value, error) {
	return p.Parse(s2b(s))
}

// Reset 清空位置与状态，会话可再次解析
func (p *Parser) Reset() {
	p.src = nil
	p.pos, p.depth = 0, 0
	p.complete, p.failed = false, false
	p.err = nil
	p.initializing = true
}

// Close 结束会话，此后 Parse 返回 ErrInvalidUsage
func (p *Parser) Close() {
	p.Reset()
	p.initializing = false
	p.closed = true
	p.log = nil
}

// ─── 状态 ───

// IsInit 会话已初始化（未关闭）
func (p *Parser) IsInit() bool { return p.initializing }

// IsComplete 最近一次解析成功
func (p *Parser) IsComplete() bool { return p.complete }

// IsError 最近一次解析失败
func (p *Parser) IsError() bool { return p.failed }

// StateString 已置位状态名以 | 连接，如 "init|complete"
func (p *Parser) StateString() string {
	var parts []string
	if p.initializing {
		parts = append(parts, "init")
	}
	if p.complete {
		parts = append(parts, "complete")
	}
	if p.failed {
		parts = append(parts, "error")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Pos 当前字节偏移
func (p *Parser) Pos() int { return p.pos }

// Depth 当前嵌套深度（出错时保留出错位置的深度）
func (p *Parser) Depth() int { return p.depth }

// MaxDepth 最大嵌套深度
func (p *Parser) MaxDepth() int { return p.maxDepth }

// Err 最近一次解析错误
func (p *Parser) Err() error { return p.err }

// LineCol 当前位置的行列号
//
// 行号为 pos 之前 '\n' 的个数；列号为 pos 减去最后一个 '\n' 的下标（无则为 0）。
func (p *Parser) LineCol() (line, col uint) {
	n := min(p.pos, len(p.src))
	head := p.src[:n]
	line = uint(bytes.Count(head, []byte{'\n'}))
	last := 0
	if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
		last = i
	}
	return line, uint(n - last)
}

// ReportPosition 按模板 tpl 写出行列号，tpl 为空时使用会话的错误模板
func (p *Parser) ReportPosition(w io.Writer, tpl string) (int, error) {
	if tpl == "" {
		tpl = p.errFmt
	}
	line, col := p.LineCol()
	return fmt.Fprintf(w, tpl, line, col)
}

// Stringify 使用会话分配器序列化 v
func (p *Parser) Stringify(v *Value, indent string, flags Flags) ([]byte, error) {
	return p.f.Stringify(v, indent, flags)
}

// fail 置错误状态并输出诊断
func (p *Parser) fail(err error, format string, args ...any) error {
	p.failed = true
	line, col := p.LineCol()
	pe := &ParseError{Offset: p.pos, Line: line, Column: col, Err: err}
	if format != "" {
		pe.Msg = fmt.Sprintf(format, args...)
	}
	p.err = pe
	if p.errOut != nil {
		fmt.Fprintf(p.errOut, p.errFmt, line, col)
		fmt.Fprintln(p.errOut, pe.detail())
	}
	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"line":   line,
			"column": col,
			"offset": p.pos,
		}).Debug(pe.detail())
	}
	return pe
}

// ─── 递归下降 ───

func (p *Parser) skipWS() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

// peek 当前字节，越界返回 0
func (p *Parser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *Parser) parseValue() (*Value, error) {
	p.skipWS()
	if p.pos >= len(p.src) {
		return nil, p.fail(ErrExpectingValue, "unexpected end of input")
	}
	switch c := p.src[p.pos]; c {
	case '{':
		return p.parseObject()
	case '[':
		return p.parseArray()
	case '"':
		return p.parseString()
	case 't':
		return p.parseLiteral("true", TypeTrue)
	case 'f':
		return p.parseLiteral("false", TypeFalse)
	case 'n':
		return p.parseLiteral("null", TypeNull)
	default:
		if c == '-' || (c >= '0' && c <= '9') {
			return p.parseNumber()
		}
		return nil, p.fail(ErrExpectingValue, "unexpected %q", c)
	}
}

// enter 跳过开括号并增加深度
func (p *Parser) enter() error {
	p.pos++
	p.depth++
	if p.depth > p.maxDepth {
		return p.fail(ErrMaxDepth, "depth %d exceeds %d", p.depth, p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() {
	p.pos++
	p.depth--
}

func (p *Parser) parseObject() (*Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	obj := p.f.NewObject()
	if obj == nil {
		return nil, p.fail(ErrNoMemory, "object")
	}
	p.skipWS()
	if p.peek() == '}' {
		p.leave()
		return obj, nil
	}
	for {
		p.skipWS()
		if p.peek() != '"' {
			return obj, p.fail(ErrExpectingQuote, "object member name")
		}
		p.pos++
		name, err := p.scanString()
		if err != nil {
			return obj, err
		}
		p.skipWS()
		if p.peek() != ':' {
			p.f.a.FreeBytes(name)
			return obj, p.fail(ErrExpectingColon, "")
		}
		p.pos++
		val, err := p.parseValue()
		if val == nil {
			p.f.a.FreeBytes(name)
			return obj, err
		}
		if !p.f.AddPair(obj, name, val) {
			p.f.a.FreeBytes(name)
			_ = p.f.Free(val)
			if err != nil {
				return obj, err
			}
			return obj, p.fail(ErrNoMemory, "object member")
		}
		if err != nil {
			return obj, err
		}
		p.skipWS()
		if p.peek() != ',' {
			break
		}
		p.pos++
	}
	if p.peek() != '}' {
		return obj, p.fail(ErrExpectingComma, "")
	}
	p.leave()
	return obj, nil
}

func (p *Parser) parseArray() (*Value, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	arr := p.f.NewArray()
	if arr == nil {
		return nil, p.fail(ErrNoMemory, "array")
	}
	p.skipWS()
	if p.peek() == ']' {
		p.leave()
		return arr, nil
	}
	for {
		val, err := p.parseValue()
		if val == nil {
			return arr, err
		}
		if !p.f.AddElement(arr, val) {
			_ = p.f.Free(val)
			if err != nil {
				return arr, err
			}
			return arr, p.fail(ErrNoMemory, "array element")
		}
		if err != nil {
			return arr, err
		}
		p.skipWS()
		if p.peek() != ',' {
			break
		}
		p.pos++
	}
	if p.peek() != ']' {
		return arr, p.fail(ErrExpectingCommaArr, "")
	}
	p.leave()
	return arr, nil
}

func (p *Parser) parseString() (*Value, error) {
	p.pos++
	s, err := p.scanString()
	if err != nil {
		return nil, err
	}
	v := p.f.newStringOwned(s)
	if v == nil {
		p.f.a.FreeBytes(s)
		return nil, p.fail(ErrNoMemory, "string")
	}
	return v, nil
}

// scanString 从开引号之后扫描到闭引号并解转义，pos 停在闭引号之后
//
// '\' 总是吞掉下一个字节，因此 "a\\" 在第二个引号处结束。
func (p *Parser) scanString() ([]byte, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '"':
			s, err := Unescape(p.f.a, p.src[start:p.pos], p.strict)
			if err != nil {
				if s != nil {
					p.f.a.FreeBytes(s)
				}
				var ee *EscapeError
				if errors.As(err, &ee) {
					p.pos = start + ee.Offset
					if ee.Byte != 0 {
						return nil, p.fail(ee.Err, "%q", ee.Byte)
					}
					return nil, p.fail(ee.Err, "")
				}
				return nil, p.fail(err, "string")
			}
			p.pos++
			return s, nil
		case c == '\\':
			p.pos += 2
		case c < 0x20:
			return nil, p.fail(ErrControlChar, "byte 0x%02x", c)
		default:
			p.pos++
		}
	}
	p.pos = len(p.src)
	return nil, p.fail(ErrUnterminatedString, "")
}

// parseNumber 按 JSON 数字语法取最长合法前缀，再交给 strconv 转换
func (p *Parser) parseNumber() (*Value, error) {
	end := scanNumber(p.src, p.pos)
	if end == p.pos {
		return nil, p.fail(ErrExpectingNumber, "")
	}
	f, err := strconv.ParseFloat(b2s(p.src[p.pos:end]), 64)
	if math.IsInf(f, 0) {
		return nil, p.fail(ErrNumberRange, "%s", p.src[p.pos:end])
	}
	if err != nil {
		return nil, p.fail(ErrExpectingNumber, "%s", p.src[p.pos:end])
	}
	v := p.f.NewNumber(f)
	if v == nil {
		return nil, p.fail(ErrNoMemory, "number")
	}
	p.pos = end
	return v, nil
}

// scanNumber 返回 -?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)? 最长前缀的结束下标
//
// 不完整的小数或指数部分不计入，剩余字节由调用方按尾随字符处理。
func scanNumber(s []byte, i int) int {
	start := i
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	default:
		return start
	}
	if i+1 < len(s) && s[i] == '.' && isDigit(s[i+1]) {
		i += 2
		for i < len(s) && isDigit(s[i]) {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		k := i + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		if k < len(s) && isDigit(s[k]) {
			for k < len(s) && isDigit(s[k]) {
				k++
			}
			i = k
		}
	}
	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func (p *Parser) parseLiteral(lit string, t Type) (*Value, error) {
	if !bytes.HasPrefix(p.src[p.pos:], s2b(lit)) {
		return nil, p.fail(ErrExpectingValue, "invalid literal, want %s", lit)
	}
	v := p.f.newValue(t)
	if v == nil {
		return nil, p.fail(ErrNoMemory, "%s", lit)
	}
	p.pos += len(lit)
	return v, nil
}
