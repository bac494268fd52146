package pystruct

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode"
	"unicode/utf16"
)

// nativeLittleEndian 表示本机是否为小端字节序
var nativeLittleEndian = binary.NativeEndian.Uint16([]byte{1, 0}) == 1

// Field 表示编译后布局中的单个字段操作
// 每个字段保存其类型、绝对偏移、占用字节数和字节序, 在编译时确定, 之后不再改变
// Get/Set 通过对 Kind 的单一分派实现, 不依赖闭包
//
// Field is one compiled field operation of a Layout. Offset, Size and byte
// order are resolved at compile time and never change afterwards.
type Field struct {
	Kind         Kind // 字段类型 / field kind
	Directive    byte // 产生此字段的格式字符 / format character that produced the field
	Offset       int  // 相对布局起点的偏移 / offset from the start of the layout
	Size         int  // 占用字节数 / bytes occupied
	LittleEndian bool // 字节序 / byte order (ignored for 1-byte kinds and pointers)
	Capacity     int  // 字符串码元容量 / string capacity in code units
	Width        int  // 字符串码元字节宽度 (1, 2, 4) / string code-unit width in bytes
}

// String 返回字段的字符串表示
// 主要用于调试和日志记录
func (f *Field) String() string {
	buffer := acquireBuffer()
	defer releaseBuffer(buffer)

	buffer.WriteString("{")
	buffer.WriteString(fmt.Sprintf("type: %s, offset: %d, size: %d", f.Kind, f.Offset, f.Size))
	if f.Size > 1 && f.Kind != Pointer {
		if f.LittleEndian {
			buffer.WriteString(", order: little")
		} else {
			buffer.WriteString(", order: big")
		}
	}
	if f.Kind == String {
		buffer.WriteString(fmt.Sprintf(", len: %d, width: %d", f.Capacity, f.Width*8))
	}
	buffer.WriteString("}")

	return buffer.String()
}

// byteOrder 返回字段使用的字节序
// 指针字段总是使用本机字节序
func (f *Field) byteOrder() binary.ByteOrder {
	if f.Kind == Pointer {
		return binary.NativeEndian
	}
	if f.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// Get 从布局窗口 buffer 中读取字段值
// buffer 的第 0 字节对应布局起点, 调用方保证长度不小于布局大小
//
// Get reads the field from a layout window whose byte 0 is the layout start.
func (f *Field) Get(buffer []byte) any {
	b := buffer[f.Offset : f.Offset+f.Size]
	order := f.byteOrder()

	switch f.Kind {
	case Int8:
		return int8(b[0])
	case Uint8:
		return b[0]
	case Bool:
		return b[0] != 0
	case Int16:
		return int16(order.Uint16(b))
	case Uint16:
		return order.Uint16(b)
	case Int32:
		return int32(order.Uint32(b))
	case Uint32:
		return order.Uint32(b)
	case Int64:
		return int64(order.Uint64(b))
	case Uint64:
		return order.Uint64(b)
	case Float32:
		return math.Float32frombits(order.Uint32(b))
	case Float64:
		return math.Float64frombits(order.Uint64(b))
	case Pointer:
		return Handle(order.Uint64(b))
	case String:
		return f.getString(b, order)
	default:
		return nil
	}
}

// getString 读取最多 Capacity 个码元, 遇到第一个零码元即停止
// 尾部的零填充永远不会出现在结果中
func (f *Field) getString(b []byte, order binary.ByteOrder) string {
	units := make([]uint16, 0, f.Capacity)
	for i := 0; i < f.Capacity; i++ {
		var unit uint32
		switch f.Width {
		case 1:
			unit = uint32(b[i])
		case 2:
			unit = uint32(order.Uint16(b[i*2:]))
		default:
			unit = order.Uint32(b[i*4:])
		}
		if unit == 0 {
			break
		}
		if unit > unicode.MaxRune {
			units = append(units, unicode.ReplacementChar)
			continue
		}
		if unit > 0xFFFF {
			// 32 位码元中超出 BMP 的值按完整码点处理
			r1, r2 := utf16.EncodeRune(rune(unit))
			units = append(units, uint16(r1), uint16(r2))
			continue
		}
		units = append(units, uint16(unit))
	}
	return fromCodeUnits(units)
}

// Set 将值 v 写入布局窗口 buffer
// 整数超出字段范围时返回 *RangeError, 类型不匹配时返回 *ValueError
//
// Set writes v into a layout window. Out-of-range integers fail with
// *RangeError, unusable Go types with *ValueError.
func (f *Field) Set(buffer []byte, v any) error {
	b := buffer[f.Offset : f.Offset+f.Size]
	order := f.byteOrder()

	switch f.Kind {
	case Int8, Int16, Int32:
		i, err := f.checkSigned(v)
		if err != nil {
			return err
		}
		f.writeInteger(b, uint64(i), order)
	case Uint8, Uint16, Uint32:
		u, err := f.checkUnsigned(v)
		if err != nil {
			return err
		}
		f.writeInteger(b, u, order)
	case Int64:
		i, ok, err := toInt64(f.Kind, v)
		if err != nil {
			return err
		}
		if !ok {
			return f.rangeError(v, formatInt(math.MinInt64), formatInt(math.MaxInt64))
		}
		order.PutUint64(b, uint64(i))
	case Uint64:
		u, ok, err := toUint64(f.Kind, v)
		if err != nil {
			return err
		}
		if !ok {
			return f.rangeError(v, "0", formatUint(math.MaxUint64))
		}
		order.PutUint64(b, u)
	case Bool:
		if truthy(v) {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case Float32:
		x, err := toFloat64(f.Kind, v)
		if err != nil {
			return err
		}
		order.PutUint32(b, math.Float32bits(float32(x)))
	case Float64:
		x, err := toFloat64(f.Kind, v)
		if err != nil {
			return err
		}
		order.PutUint64(b, math.Float64bits(x))
	case Pointer:
		u, ok, err := toUint64(f.Kind, v)
		if err != nil {
			return err
		}
		if !ok {
			return &ValueError{Kind: f.Kind, Value: v, Detail: "handle must be a non-negative 64-bit value"}
		}
		order.PutUint64(b, u)
	case String:
		return f.setString(b, v, order)
	default:
		return fmt.Errorf("pystruct: unsupported field kind for packing: %v", f.Kind)
	}
	return nil
}

// setString 写入 min(len, Capacity) 个码元, 剩余容量用零填充
// 超长输入被静默截断, 这不是错误
func (f *Field) setString(b []byte, v any, order binary.ByteOrder) error {
	units, raw, err := toCodeUnits(v)
	if err != nil {
		return err
	}
	if raw != nil && f.Width == 1 {
		n := copy(b, raw)
		clear(b[n:])
		return nil
	}
	if raw != nil {
		units = make([]uint16, len(raw))
		for i, c := range raw {
			units[i] = uint16(c)
		}
	}

	n := min(len(units), f.Capacity)
	for i := 0; i < n; i++ {
		switch f.Width {
		case 1:
			b[i] = byte(units[i])
		case 2:
			order.PutUint16(b[i*2:], units[i])
		default:
			order.PutUint32(b[i*4:], uint32(units[i]))
		}
	}
	clear(b[n*f.Width:])
	return nil
}

// checkSigned 检查有符号整数是否在字段宽度的精确范围内
func (f *Field) checkSigned(v any) (int64, error) {
	bits := uint(f.Size * 8)
	lo, hi := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
	i, ok, err := toInt64(f.Kind, v)
	if err != nil {
		return 0, err
	}
	if !ok || i < lo || i > hi {
		return 0, f.rangeError(v, formatInt(lo), formatInt(hi))
	}
	return i, nil
}

// checkUnsigned 检查无符号整数是否在字段宽度的精确范围内
func (f *Field) checkUnsigned(v any) (uint64, error) {
	bits := uint(f.Size * 8)
	hi := uint64(1)<<bits - 1
	u, ok, err := toUint64(f.Kind, v)
	if err != nil {
		return 0, err
	}
	if !ok || u > hi {
		return 0, f.rangeError(v, "0", formatUint(hi))
	}
	return u, nil
}

func (f *Field) rangeError(v any, lo, hi string) error {
	return &RangeError{Directive: f.Directive, Value: v, Min: lo, Max: hi}
}

// writeInteger 将整数值写入缓冲区
// 支持 8/16/32 位整数类型的写入
func (f *Field) writeInteger(b []byte, v uint64, order binary.ByteOrder) {
	switch f.Size {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	}
}
