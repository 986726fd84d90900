package json

import (
	"bytes"
	"strings"
)

// Query 按 RFC 6901 JSON Pointer 在 root 中查找值
//
// "/" 返回 root 本身；其余指针要求 root 为对象或数组。
// 不支持空指针 "" 与末尾 "/"；数组下标只接受 0 或无前导零的十进制，
// "-" 视为非法下标。对象重复键取第一个。
func Query(root *Value, query []byte) (*Value, error) {
	if root == nil {
		return nil, ErrInvalidUsage
	}
	n := len(query)
	if n == 0 || query[0] != '/' {
		return nil, ErrInvalidPointer
	}
	if n == 1 {
		return root, nil
	}
	if query[n-1] == '/' {
		return nil, ErrInvalidPointer
	}
	if root.t != TypeObject && root.t != TypeArray {
		return nil, ErrTypeMismatch
	}

	// 短 token 解码在栈上完成
	var stk [64]byte
	cur := root
	rest := query[1:]
	for {
		raw, next, more := cutToken(rest)
		tok, err := unescapeToken(stk[:0], raw)
		if err != nil {
			return nil, err
		}
		if cur, err = step(cur, tok); err != nil {
			return nil, err
		}
		if !more {
			return cur, nil
		}
		rest = next
	}
}

// QueryString 同 Query
func QueryString(root *Value, query string) (*Value, error) {
	return Query(root, s2b(query))
}

// Query 以 v 为根查询 JSON Pointer
func (v *Value) Query(ptr string) (*Value, error) {
	return QueryString(v, ptr)
}

func cutToken(s []byte) (tok, rest []byte, more bool) {
	if i := bytes.IndexByte(s, '/'); i >= 0 {
		return s[:i], s[i+1:], true
	}
	return s, nil, false
}

// unescapeToken 单遍解码 ~1 → '/'、~0 → '~'（"~01" 解为 "~1"）
//
// 不含 '~' 时直接返回 raw。
func unescapeToken(buf, raw []byte) ([]byte, error) {
	if bytes.IndexByte(raw, '~') < 0 {
		return raw, nil
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '~' {
			buf = append(buf, c)
			continue
		}
		if i+1 >= len(raw) {
			return nil, ErrInvalidPointer
		}
		switch raw[i+1] {
		case '0':
			buf = append(buf, '~')
		case '1':
			buf = append(buf, '/')
		default:
			return nil, ErrInvalidPointer
		}
		i++
	}
	return buf, nil
}

// step 在容器 cur 中解析一个 token
func step(cur *Value, tok []byte) (*Value, error) {
	switch cur.t {
	case TypeObject:
		if v := cur.objFind(tok); v != nil {
			return v, nil
		}
		return nil, ErrNotFound
	case TypeArray:
		idx, ok := parseIdx(b2s(tok))
		if !ok {
			return nil, ErrInvalidIndex
		}
		if idx >= len(cur.elems) {
			return nil, ErrNotFound
		}
		return cur.elems[idx], nil
	default:
		return nil, ErrTypeMismatch
	}
}

// ─── Pointer ───

// Pointer 预解析的 JSON Pointer，可重复求值
type Pointer struct {
	tokens []string
}

// NewPointer 由未转义的 token 构建指针
//
// 末尾 token 为空时文本形式以 '/' 结尾，与 ParsePointer 的规则一致返回 ErrInvalidPointer。
func NewPointer(tokens ...string) (Pointer, error) {
	if n := len(tokens); n > 0 && tokens[n-1] == "" {
		return Pointer{}, ErrInvalidPointer
	}
	return Pointer{tokens: append([]string(nil), tokens...)}, nil
}

// ParsePointer 解析指针文本，校验规则同 Query
func ParsePointer(s string) (Pointer, error) {
	if len(s) == 0 || s[0] != '/' {
		return Pointer{}, ErrInvalidPointer
	}
	if len(s) == 1 {
		return Pointer{}, nil
	}
	if s[len(s)-1] == '/' {
		return Pointer{}, ErrInvalidPointer
	}
	parts := strings.Split(s[1:], "/")
	tokens := make([]string, len(parts))
	for i, part := range parts {
		tok, err := unescapeToken(nil, s2b(part))
		if err != nil {
			return Pointer{}, err
		}
		tokens[i] = string(tok)
	}
	return Pointer{tokens: tokens}, nil
}

// Tokens 未转义的 token 列表
func (p Pointer) Tokens() []string {
	return append([]string(nil), p.tokens...)
}

// String 转义后的指针文本，根指针为 "/"
func (p Pointer) String() string {
	if len(p.tokens) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, tok := range p.tokens {
		sb.WriteByte('/')
		sb.WriteString(EscapeToken(tok))
	}
	return sb.String()
}

// Eval 在 root 上求值
func (p Pointer) Eval(root *Value) (*Value, error) {
	if root == nil {
		return nil, ErrInvalidUsage
	}
	if len(p.tokens) == 0 {
		return root, nil
	}
	if root.t != TypeObject && root.t != TypeArray {
		return nil, ErrTypeMismatch
	}
	cur := root
	for _, tok := range p.tokens {
		var err error
		if cur, err = step(cur, s2b(tok)); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

var tokenEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// EscapeToken 转义 token 中的 '~' 与 '/'
func EscapeToken(tok string) string {
	return tokenEscaper.Replace(tok)
}
