package json

// ─── 解转义 ───

// Unescape 将 JSON 字符串内容（不含两侧引号）解转义为 UTF-8
//
// 输出缓冲由 a 分配；输出长度不超过输入长度。失败时返回已解出的部分
// 与 *EscapeError。strict 为 true 时拒绝未配对的代理项。
// 非转义字节原样拷贝，不做 UTF-8 校验。
func Unescape(a Allocator, src []byte, strict bool) ([]byte, error) {
	if a == nil {
		a = DefaultAllocator
	}
	out := a.MakeBytes(len(src))
	if out == nil {
		return nil, ErrNoMemory
	}
	n, err := unescapeTo(out, src, strict)
	return out[:n], err
}

// unescapeTo 解转义到 dst（len(dst) >= len(src)），返回写入字节数
func unescapeTo(dst, src []byte, strict bool) (int, error) {
	j := 0
	for k := 0; k < len(src); {
		c := src[k]
		if c != '\\' {
			dst[j] = c
			j++
			k++
			continue
		}
		if k+1 >= len(src) {
			return j, &EscapeError{Offset: k, Err: ErrTruncatedEscape}
		}
		switch e := src[k+1]; e {
		case '"', '\\', '/':
			dst[j] = e
		case 'b':
			dst[j] = '\b'
		case 'f':
			dst[j] = '\f'
		case 'n':
			dst[j] = '\n'
		case 'r':
			dst[j] = '\r'
		case 't':
			dst[j] = '\t'
		case 'u':
			r, ok := hex4(src, k+2)
			if !ok {
				return j, &EscapeError{Offset: k, Err: ErrInvalidUnicode}
			}
			switch {
			case isHighSurrogate(r):
				if lo, ok := lowSurrogateAt(src, k+6); ok {
					j += encRune(dst[j:], 0x10000+((r&0x3FF)<<10)+(lo&0x3FF))
					k += 12
					continue
				}
				if strict {
					return j, &EscapeError{Offset: k, Err: ErrInvalidSurrogate}
				}
			case isLowSurrogate(r) && strict:
				return j, &EscapeError{Offset: k, Err: ErrInvalidSurrogate}
			}
			j += encRune(dst[j:], r)
			k += 6
			continue
		default:
			return j, &EscapeError{Offset: k + 1, Byte: e, Err: ErrInvalidEscape}
		}
		j++
		k += 2
	}
	return j, nil
}

func isHighSurrogate(r rune) bool { return r >= 0xD800 && r <= 0xDBFF }
func isLowSurrogate(r rune) bool  { return r >= 0xDC00 && r <= 0xDFFF }

// lowSurrogateAt src[i:] 以 \uDC00-\uDFFF 开头时返回该代理项
func lowSurrogateAt(src []byte, i int) (rune, bool) {
	if i+1 >= len(src) || src[i] != '\\' || src[i+1] != 'u' {
		return 0, false
	}
	r, ok := hex4(src, i+2)
	if !ok || !isLowSurrogate(r) {
		return 0, false
	}
	return r, true
}

// hex4 解析 src[i:i+4] 四位十六进制
func hex4(src []byte, i int) (rune, bool) {
	if i+4 > len(src) {
		return 0, false
	}
	var r rune
	for _, c := range src[i : i+4] {
		d := hexDig(c)
		if d < 0 {
			return 0, false
		}
		r = r<<4 | rune(d)
	}
	return r, true
}

func hexDig(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// encRune 编码 rune 为 UTF-8，代理项区间按三字节编码（不替换为 U+FFFD）
func encRune(buf []byte, r rune) int {
	switch {
	case r < 0x80:
		buf[0] = byte(r)
		return 1
	case r < 0x800:
		buf[0] = 0xC0 | byte(r>>6)
		buf[1] = 0x80 | byte(r)&0x3F
		return 2
	case r < 0x10000:
		buf[0] = 0xE0 | byte(r>>12)
		buf[1] = 0x80 | byte(r>>6)&0x3F
		buf[2] = 0x80 | byte(r)&0x3F
		return 3
	default:
		buf[0] = 0xF0 | byte(r>>18)
		buf[1] = 0x80 | byte(r>>12)&0x3F
		buf[2] = 0x80 | byte(r>>6)&0x3F
		buf[3] = 0x80 | byte(r)&0x3F
		return 4
	}
}

// ─── 转义 ───

const hexDigits = "0123456789abcdef"

// AppendEscaped 将 s 转义为带引号的 JSON 字符串追加到 dst
//
// 总是转义 '"'、'\' 与 0x00-0x1F；FlagEscapeNonASCII 将所有非 ASCII 字符
// 写为 \uXXXX，FlagEscapeNonBMP 只转义 BMP 之外的字符（代理对）。
// 非法 UTF-8 字节原样输出。
func AppendEscaped(dst, s []byte, flags Flags) []byte {
	nonASCII := flags&FlagEscapeNonASCII != 0
	nonBMP := nonASCII || flags&FlagEscapeNonBMP != 0

	dst = append(dst, '"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c < 0x80 && c != '"' && c != '\\' {
			i++
			continue
		}
		if c >= 0x80 && !nonBMP {
			i++
			continue
		}
		dst = append(dst, s[start:i]...)
		switch {
		case c == '"' || c == '\\':
			dst = append(dst, '\\', c)
			i++
		case c < 0x20:
			dst = appendU4(dst, rune(c))
			i++
		default:
			r, size := decRune(s[i:])
			switch {
			case size == 0:
				dst = append(dst, c)
				size = 1
			case size == 4:
				r -= 0x10000
				dst = appendU4(dst, 0xD800+(r>>10))
				dst = appendU4(dst, 0xDC00+(r&0x3FF))
			case nonASCII:
				dst = appendU4(dst, r)
			default:
				dst = append(dst, s[i:i+size]...)
			}
			i += size
		}
		start = i
	}
	dst = append(dst, s[start:]...)
	return append(dst, '"')
}

func appendU4(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[r>>12&0xF], hexDigits[r>>8&0xF], hexDigits[r>>4&0xF], hexDigits[r&0xF])
}

// decRune 解码 s 开头的一个多字节 UTF-8 序列，非法时 size 为 0
//
// 三字节代理项编码（由宽松解转义产生）视为合法，以保证转义往返一致。
func decRune(s []byte) (rune, int) {
	c := s[0]
	var r rune
	var size int
	switch {
	case c&0xE0 == 0xC0:
		r, size = rune(c&0x1F), 2
	case c&0xF0 == 0xE0:
		r, size = rune(c&0x0F), 3
	case c&0xF8 == 0xF0:
		r, size = rune(c&0x07), 4
	default:
		return 0, 0
	}
	if len(s) < size {
		return 0, 0
	}
	for k := 1; k < size; k++ {
		if s[k]&0xC0 != 0x80 {
			return 0, 0
		}
		r = r<<6 | rune(s[k]&0x3F)
	}
	switch size {
	case 2:
		if r < 0x80 {
			return 0, 0
		}
	case 3:
		if r < 0x800 {
			return 0, 0
		}
	case 4:
		if r < 0x10000 || r > 0x10FFFF {
			return 0, 0
		}
	}
	return r, size
}
