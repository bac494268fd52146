package pystruct

import (
	"fmt"
	"reflect"
	"strconv"
)

// FormatOf 返回结构体的格式字符串，用于描述二进制数据的布局。
// 格式与本包的格式字符串一致，例如 ">10sHHb"。未指定字节序的字段使用大端序。
//
// FormatOf returns the format string describing the binary layout of a flat
// struct, e.g. ">10sHHb". Fields without an explicit order are big-endian.
func FormatOf(data interface{}) (string, error) {
	t, err := structType(data)
	if err != nil {
		return "", err
	}
	plan, err := planFor(t)
	if err != nil {
		return "", fmt.Errorf("failed to parse fields: %w", err)
	}
	return plan.format, nil
}

// structType 验证输入数据并返回结构体的类型。
// 如果输入不是结构体或结构体指针，则返回错误。
//
// structType validates the input data and returns the struct type.
// Returns an error if the input is not a struct or pointer to struct.
func structType(data interface{}) (reflect.Type, error) {
	value := reflect.ValueOf(data)

	// 解引用所有指针
	// Dereference all pointers
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, fmt.Errorf("data must be a struct or pointer to struct")
		}
		value = value.Elem()
	}

	// 确保是结构体类型
	// Ensure it's a struct type
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf("data must be a struct or pointer to struct")
	}

	return value.Type(), nil
}

// buildFormatString 构建格式字符串。
// 字节序在需要时于字段之间切换。
//
// buildFormatString builds the format string, switching byte order between
// fields where needed.
func buildFormatString(fields []structField) (string, error) {
	format := acquireBuffer()
	defer releaseBuffer(format)

	current := byte('>')
	format.WriteByte(current)

	for _, field := range fields {
		order := field.Order
		if order == 0 {
			order = '>'
		}
		if order != current && needsOrder(field.Kind) {
			format.WriteByte(order)
			current = order
		}

		if err := formatField(format, field); err != nil {
			return "", err
		}
	}
	return format.String(), nil
}

// needsOrder 判断字段类型是否受字节序影响
func needsOrder(k Kind) bool {
	switch k {
	case Pad, Int8, Uint8, Bool, Pointer:
		return false
	}
	return true
}

type byteWriter interface {
	WriteByte(c byte) error
	WriteString(s string) (int, error)
}

// formatField 处理单个字段的格式化。
// formatField handles the formatting of a single field.
func formatField(format byteWriter, field structField) error {
	formatChar, ok := kindToDirective[field.Kind]
	if !ok {
		return fmt.Errorf("unsupported type for field %s: %v", field.Name, field.Kind)
	}

	switch {
	case field.Kind == Pad || field.Kind == String:
		// 填充和字符串使用计数前缀
		// Padding and strings use a count prefix
		if field.Length != 1 || field.Kind == String {
			format.WriteString(strconv.Itoa(field.Length))
		}
		format.WriteByte(formatChar)
	case field.IsList:
		// 其他类型的数组重复生成元素的格式字符
		// Other arrays repeat the element's format character
		for i := 0; i < field.Length; i++ {
			format.WriteByte(formatChar)
		}
	default:
		format.WriteByte(formatChar)
	}
	return nil
}
