package json

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Option Parser 配置项
type Option func(*Parser)

// WithMaxDepth 最大嵌套深度，n <= 0 时使用 DefaultMaxDepth
func WithMaxDepth(n int) Option {
	return func(p *Parser) {
		if n <= 0 {
			n = DefaultMaxDepth
		}
		p.maxDepth = n
	}
}

// WithErrorStream 诊断输出目标，默认 os.Stderr；nil 关闭输出
func WithErrorStream(w io.Writer) Option {
	return func(p *Parser) { p.errOut = w }
}

// WithErrorFormat 诊断行前缀模板，依次接收行号、列号两个无符号整数
func WithErrorFormat(tpl string) Option {
	return func(p *Parser) {
		if tpl == "" {
			tpl = DefaultErrorFormat
		}
		p.errFmt = tpl
	}
}

// WithAllocator 节点与缓冲分配器，nil 使用 DefaultAllocator
func WithAllocator(a Allocator) Option {
	return func(p *Parser) { p.f = NewFactory(a) }
}

// WithStrictUnicode 拒绝未配对的 UTF-16 代理项
func WithStrictUnicode(strict bool) Option {
	return func(p *Parser) { p.strict = strict }
}

// WithLogger 结构化日志，诊断以 Debug 级别记录
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Parser) { p.log = l }
}
