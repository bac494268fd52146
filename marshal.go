package pystruct

import (
	"fmt"
	"reflect"
	"unicode/utf16"
)

// Marshal 将扁平结构体按其字段标签打包为字节
// 格式字符串由 FormatOf 推导, 同一类型的计划会被缓存
//
// Marshal packs a flat struct using the layout derived by FormatOf.
func Marshal(data interface{}) ([]byte, error) {
	if data == nil {
		return nil, fmt.Errorf("cannot pack nil data")
	}
	value := reflect.ValueOf(data)
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			return nil, fmt.Errorf("data must be a struct or pointer to struct")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return nil, fmt.Errorf("data must be a struct or pointer to struct")
	}

	plan, err := planFor(value.Type())
	if err != nil {
		return nil, fmt.Errorf("preparation failed: %w", err)
	}

	values := acquireValues()
	defer releaseValues(values)
	for _, field := range plan.fields {
		*values = appendFieldValues(*values, field, value.Field(field.Index))
	}

	buffer, err := plan.layout.Pack(*values...)
	if err != nil {
		return nil, fmt.Errorf("packing failed: %w", err)
	}
	return buffer, nil
}

// appendFieldValues 将一个结构体字段展开为布局所需的值
func appendFieldValues(values []any, field structField, fv reflect.Value) []any {
	switch {
	case field.Kind == Pad:
		return values
	case field.Kind == String:
		if fv.Kind() == reflect.String {
			return append(values, fv.String())
		}
		b := make([]byte, fv.Len())
		reflect.Copy(reflect.ValueOf(b), fv)
		return append(values, b)
	case field.IsList:
		for i := 0; i < field.Length; i++ {
			if i < fv.Len() {
				values = append(values, fv.Index(i).Interface())
			} else {
				values = append(values, reflect.Zero(fv.Type().Elem()).Interface())
			}
		}
		return values
	default:
		return append(values, fv.Interface())
	}
}

// Unmarshal 从 buffer 中解包数据并写入 data 指向的扁平结构体
// Unmarshal unpacks buffer into the flat struct pointed to by data.
func Unmarshal(buffer []byte, data interface{}) error {
	value := reflect.ValueOf(data)
	if value.Kind() != reflect.Ptr || value.IsNil() {
		return fmt.Errorf("data must be a non-nil pointer to struct")
	}
	for value.Kind() == reflect.Ptr {
		if value.IsNil() {
			value.Set(reflect.New(value.Type().Elem()))
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return fmt.Errorf("data must be a non-nil pointer to struct")
	}

	plan, err := planFor(value.Type())
	if err != nil {
		return fmt.Errorf("preparation failed: %w", err)
	}
	values, err := plan.layout.Unpack(buffer)
	if err != nil {
		return err
	}

	next := 0
	for _, field := range plan.fields {
		fv := value.Field(field.Index)
		switch {
		case field.Kind == Pad:
		case field.Kind == String:
			setStringField(fv, values[next].(string))
			next++
		case field.IsList:
			if fv.Kind() == reflect.Slice && fv.Len() < field.Length {
				fv.Set(reflect.MakeSlice(fv.Type(), field.Length, field.Length))
			}
			for i := 0; i < field.Length; i++ {
				if err := setScalarField(fv.Index(i), values[next]); err != nil {
					return fmt.Errorf("field %s[%d]: %w", field.Name, i, err)
				}
				next++
			}
		default:
			if err := setScalarField(fv, values[next]); err != nil {
				return fmt.Errorf("field %s: %w", field.Name, err)
			}
			next++
		}
	}
	return nil
}

// setStringField 写入字符串或字节数组字段
// 字节目标按码元逐个还原, 使非 ASCII 字节也能无损往返
func setStringField(fv reflect.Value, s string) {
	if fv.Kind() == reflect.String {
		fv.SetString(s)
		return
	}
	units := utf16.Encode([]rune(s))
	b := make([]byte, len(units))
	for i, u := range units {
		b[i] = byte(u)
	}
	if fv.Kind() == reflect.Slice {
		fv.SetBytes(b)
		return
	}
	// 定长数组: 先清零再复制
	fv.SetZero()
	reflect.Copy(fv, reflect.ValueOf(b))
}

// setScalarField 将解包得到的值转换为字段的 Go 类型后写入
func setScalarField(fv reflect.Value, v any) error {
	rv := reflect.ValueOf(v)
	if fv.Kind() == reflect.Bool {
		fv.SetBool(truthy(v))
		return nil
	}
	if b, ok := v.(bool); ok {
		// 数值字段按 0/1 还原 bool 指令
		n := 0
		if b {
			n = 1
		}
		rv = reflect.ValueOf(n)
	}
	if !rv.Type().ConvertibleTo(fv.Type()) {
		return fmt.Errorf("cannot assign %T to %s", v, fv.Type())
	}
	fv.Set(rv.Convert(fv.Type()))
	return nil
}
