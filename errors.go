package pystruct

import (
	"errors"
	"fmt"
	"strings"
)

// 错误类别, 可与 errors.Is 一起使用
// Error categories, usable with errors.Is.
var (
	ErrInvalidFormat  = errors.New("pystruct: invalid format")
	ErrRange          = errors.New("pystruct: value out of range")
	ErrBufferTooSmall = errors.New("pystruct: buffer too small")
	ErrInvalidValue   = errors.New("pystruct: invalid value")
	ErrArity          = errors.New("pystruct: value count does not match field count")
)

// FormatError 在编译格式字符串失败时返回
// FormatError is returned when a format string cannot be compiled.
type FormatError struct {
	Format string // 完整的格式字符串 / the whole descriptor
	Pos    int    // 出错字符的位置 / index of the offending character
	Char   byte   // 出错字符 / the offending character
	Detail string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("pystruct: invalid format ")
	b.WriteString(fmt.Sprintf("%q", e.Format))
	if e.Char != 0 {
		b.WriteString(fmt.Sprintf(" at %d (%q)", e.Pos, e.Char))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *FormatError) Is(target error) bool { return target == ErrInvalidFormat }

// RangeError 在数值超出字段可表示范围时返回
// 边界以字符串保存, 以便无损表示 64 位的边界值
//
// RangeError is returned when a numeric value does not fit its field.
type RangeError struct {
	Directive byte
	Value     any
	Min       string
	Max       string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("pystruct: %c format requires %s <= number <= %s, got %v", e.Directive, e.Min, e.Max, e.Value)
}

func (e *RangeError) Is(target error) bool { return target == ErrRange }

// BufferError 在缓冲区无法容纳布局时返回, 此时不会读写任何字节
// BufferError is returned before any byte is touched when a buffer cannot hold the layout.
type BufferError struct {
	Offset int
	Need   int
	Have   int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("pystruct: buffer of %d bytes cannot hold %d bytes at offset %d", e.Have, e.Need, e.Offset)
}

func (e *BufferError) Is(target error) bool { return target == ErrBufferTooSmall }

// ValueError 在 Go 值的类型无法用于某个字段时返回
// ValueError is returned when a Go value's type cannot serve a field kind.
type ValueError struct {
	Kind   Kind
	Value  any
	Detail string
}

func (e *ValueError) Error() string {
	msg := fmt.Sprintf("pystruct: cannot use %T (%v) as %s", e.Value, e.Value, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValueError) Is(target error) bool { return target == ErrInvalidValue }
