package pystruct

import (
	"math"

	"go.uber.org/zap"
)

// nativeAlignment 是 '@' 模式下的对齐粒度
// 固定为 4 字节: calcsize("@cQ") == 12, calcsize("@Qc") == 9
const nativeAlignment = 4

// maxLayoutSize 限制单个布局的总大小, 防止重复计数导致整数溢出
const maxLayoutSize = math.MaxInt32

// compiler 保存一次编译过程的全部状态
// 状态只存在于单次 Compile 调用中, 不存在任何全局可变状态
//
// compiler holds the left-to-right scan state of one compilation.
type compiler struct {
	format       string
	fields       []Field
	size         int  // 当前大小累加器 / running size accumulator
	littleEndian bool // 当前字节序 / current byte order
	align        int  // 当前对齐粒度, 0 表示不对齐 / alignment granularity, 0 = none

	count      int  // 待定的重复计数 / pending repeat count
	hasCount   bool // 是否出现过计数数字 / whether digits were seen
	width      int  // 待定的码元宽度限定符 / pending code-unit width qualifier
	hasWidth   bool // 是否出现过 '.' / whether '.' was seen
	widthDigit bool // '.' 之后是否出现过数字 / whether digits followed '.'
}

// Compile 将格式字符串编译为可复用的布局
// 出现未知格式字符或不支持的码元宽度时返回 *FormatError
//
// Compile turns a format string into a reusable, immutable Layout.
func Compile(format string) (*Layout, error) {
	return CompileWithOptions(format, nil)
}

// MustCompile 与 Compile 相同, 但在出错时 panic
// 适用于包级变量的初始化
func MustCompile(format string) *Layout {
	l, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return l
}

// CompileWithOptions 使用指定选项编译格式字符串
// CompileWithOptions compiles format with the given options (nil means defaults).
func CompileWithOptions(format string, options *Options) (*Layout, error) {
	options = resolveOptions(options)

	c := &compiler{
		format:       format,
		littleEndian: nativeLittleEndian,
	}
	for i := 0; i < len(format); i++ {
		if err := c.step(i, format[i]); err != nil {
			Logger().Debug("compile failed", zap.String("format", format), zap.Error(err))
			return nil, err
		}
	}
	if c.hasCount || c.hasWidth {
		return nil, c.errorf(len(format)-1, format[len(format)-1], "count or qualifier without a directive")
	}

	l := &Layout{
		format: format,
		fields: c.fields,
		size:   c.size,
		strict: options.Strict,
	}
	Logger().Debug("compiled layout",
		zap.String("format", format),
		zap.Int("size", l.size),
		zap.Int("fields", len(l.fields)),
	)
	return l, nil
}

// step 处理格式字符串中的一个字符
func (c *compiler) step(pos int, ch byte) error {
	switch {
	case ch >= '0' && ch <= '9':
		return c.digit(pos, ch)
	case ch == '.':
		if c.hasWidth {
			return c.errorf(pos, ch, "repeated width qualifier")
		}
		c.hasWidth = true
		return nil
	case ch == '@' || ch == '=' || ch == '<' || ch == '>' || ch == '!':
		if c.hasCount || c.hasWidth {
			return c.errorf(pos, ch, "count or qualifier before byte order directive")
		}
		c.setMode(ch)
		return nil
	}

	kind, ok := directiveToKind[ch]
	if !ok {
		return c.errorf(pos, ch, "unknown directive")
	}
	if c.hasWidth && kind != String {
		return c.errorf(pos, ch, "width qualifier is only valid before 's'")
	}

	times := 1
	if c.hasCount {
		times = c.count
	}

	var err error
	switch kind {
	case Pad:
		err = c.grow(pos, ch, times)
	case String:
		err = c.emitString(pos, ch, times)
	default:
		err = c.emitScalar(pos, ch, kind, times)
	}
	c.reset()
	return err
}

// digit 将数字累加到重复计数或码元宽度中
func (c *compiler) digit(pos int, ch byte) error {
	d := int(ch - '0')
	if c.hasWidth {
		c.width = c.width*10 + d
		c.widthDigit = true
		// 已读入的数字必须仍是 "8", "16" 或 "32" 的前缀, 不允许前导零
		switch c.width {
		case 1, 3, 8, 16, 32:
			return nil
		}
		return c.errorf(pos, ch, "only .8s, .16s and .32s are supported")
	}
	if c.count > (maxLayoutSize-d)/10 {
		return c.errorf(pos, ch, "repeat count too large")
	}
	c.count = c.count*10 + d
	c.hasCount = true
	return nil
}

// setMode 处理字节序/对齐指令, 只影响之后编译的字段
func (c *compiler) setMode(ch byte) {
	switch ch {
	case '@':
		c.align = nativeAlignment
		c.littleEndian = nativeLittleEndian
	case '=':
		c.align = 0
		c.littleEndian = nativeLittleEndian
	case '<':
		c.align = 0
		c.littleEndian = true
	case '>', '!':
		c.align = 0
		c.littleEndian = false
	}
}

// emitScalar 为标量指令生成 times 个独立字段
// 对齐模式下, 除 c/b/B 外的字段先填充到对齐粒度的倍数
func (c *compiler) emitScalar(pos int, ch byte, kind Kind, times int) error {
	size := kind.Size()
	if times > (maxLayoutSize-c.size)/size {
		return c.errorf(pos, ch, "layout too large")
	}
	for j := 0; j < times; j++ {
		if c.align > 0 && ch != 'c' && ch != 'b' && ch != 'B' {
			if r := c.size % c.align; r != 0 {
				if err := c.grow(pos, ch, c.align-r); err != nil {
					return err
				}
			}
		}
		offset := c.size
		if err := c.grow(pos, ch, size); err != nil {
			return err
		}
		c.fields = append(c.fields, Field{
			Kind:         kind,
			Directive:    ch,
			Offset:       offset,
			Size:         size,
			LittleEndian: c.littleEndian,
		})
	}
	return nil
}

// emitString 生成恰好一个字符串字段, 重复计数作为码元容量
// 字符串在任何模式下都不做对齐填充
func (c *compiler) emitString(pos int, ch byte, capacity int) error {
	width := 1
	if c.hasWidth {
		switch {
		case c.widthDigit && c.width == 8:
			width = 1
		case c.widthDigit && c.width == 16:
			width = 2
		case c.widthDigit && c.width == 32:
			width = 4
		default:
			return c.errorf(pos, ch, "only .8s, .16s and .32s are supported")
		}
	}
	if capacity > maxLayoutSize/width {
		return c.errorf(pos, ch, "layout too large")
	}
	offset := c.size
	if err := c.grow(pos, ch, capacity*width); err != nil {
		return err
	}
	c.fields = append(c.fields, Field{
		Kind:         String,
		Directive:    ch,
		Offset:       offset,
		Size:         capacity * width,
		LittleEndian: c.littleEndian,
		Capacity:     capacity,
		Width:        width,
	})
	return nil
}

// grow 推进大小累加器
func (c *compiler) grow(pos int, ch byte, n int) error {
	if c.size > maxLayoutSize-n {
		return c.errorf(pos, ch, "layout too large")
	}
	c.size += n
	return nil
}

// reset 在每条指令处理完后清空计数与限定符
func (c *compiler) reset() {
	c.count, c.hasCount = 0, false
	c.width, c.hasWidth, c.widthDigit = 0, false, false
}

func (c *compiler) errorf(pos int, ch byte, detail string) error {
	return &FormatError{Format: c.format, Pos: pos, Char: ch, Detail: detail}
}
