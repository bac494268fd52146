package pystruct

import (
	"math"
	"math/big"
	"reflect"
	"strconv"
	"unicode/utf16"
)

// 参数转换: 把调用方传入的任意 Go 值转换成字段需要的底层表示
// Argument marshaling: turn caller supplied Go values into the raw
// representation a field stores.

// toInt64 将有符号或无符号整数 (以及整数值的浮点数) 转换为 int64
// 第二个返回值为 false 表示数值超出 int64 范围 (仅无符号大数和 big.Int)
func toInt64(k Kind, v any) (int64, bool, error) {
	switch x := v.(type) {
	case int:
		return int64(x), true, nil
	case int8:
		return int64(x), true, nil
	case int16:
		return int64(x), true, nil
	case int32:
		return int64(x), true, nil
	case int64:
		return x, true, nil
	case uint:
		return int64(x), uint64(x) <= math.MaxInt64, nil
	case uint8:
		return int64(x), true, nil
	case uint16:
		return int64(x), true, nil
	case uint32:
		return int64(x), true, nil
	case uint64:
		return int64(x), x <= math.MaxInt64, nil
	case uintptr:
		return int64(x), uint64(x) <= math.MaxInt64, nil
	case Handle:
		return int64(x), uint64(x) <= math.MaxInt64, nil
	case float32:
		return floatToInt64(k, v, float64(x))
	case float64:
		return floatToInt64(k, v, x)
	case *big.Int:
		if x == nil {
			return 0, true, &ValueError{Kind: k, Value: v, Detail: "nil *big.Int"}
		}
		return x.Int64(), x.IsInt64(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		return int64(u), u <= math.MaxInt64, nil
	}
	return 0, false, &ValueError{Kind: k, Value: v}
}

func floatToInt64(k Kind, v any, f float64) (int64, bool, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false, &ValueError{Kind: k, Value: v, Detail: "not an integer"}
	}
	if f < -(1<<63) || f >= 1<<63 {
		return 0, false, nil
	}
	return int64(f), true, nil
}

// toUint64 将整数转换为 uint64, 第二个返回值为 false 表示为负数或超出 uint64
func toUint64(k Kind, v any) (uint64, bool, error) {
	switch x := v.(type) {
	case uint:
		return uint64(x), true, nil
	case uint8:
		return uint64(x), true, nil
	case uint16:
		return uint64(x), true, nil
	case uint32:
		return uint64(x), true, nil
	case uint64:
		return x, true, nil
	case uintptr:
		return uint64(x), true, nil
	case Handle:
		return uint64(x), true, nil
	case float32, float64:
		f := reflect.ValueOf(v).Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false, &ValueError{Kind: k, Value: v, Detail: "not an integer"}
		}
		if f < 0 || f >= 1<<64 {
			return 0, false, nil
		}
		return uint64(f), true, nil
	case *big.Int:
		if x == nil {
			return 0, false, &ValueError{Kind: k, Value: v, Detail: "nil *big.Int"}
		}
		return x.Uint64(), x.IsUint64(), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true, nil
	}
	i, _, err := toInt64(k, v)
	if err != nil {
		return 0, false, err
	}
	return uint64(i), i >= 0, nil
}

// toFloat64 将任意数值转换为 float64
func toFloat64(k Kind, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case *big.Int:
		if x == nil {
			return 0, &ValueError{Kind: k, Value: v, Detail: "nil *big.Int"}
		}
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	}
	return 0, &ValueError{Kind: k, Value: v}
}

// truthy 实现布尔字段的真值判断: 0/false/空字符串/nil 为假, 其余为真
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.String:
		return rv.Len() != 0
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return false
		}
		if b, ok := v.(*big.Int); ok {
			return b.Sign() != 0
		}
		return true
	}
	return true
}

// toCodeUnits 将字符串类的值转换为码元序列
// string 与 []rune 按 UTF-16 编码, []byte 与 []uint16 原样使用
func toCodeUnits(v any) ([]uint16, []byte, error) {
	switch x := v.(type) {
	case string:
		return utf16.Encode([]rune(x)), nil, nil
	case []rune:
		return utf16.Encode(x), nil, nil
	case []byte:
		return nil, x, nil
	case []uint16:
		return x, nil, nil
	case nil:
		return nil, nil, nil
	}
	return nil, nil, &ValueError{Kind: String, Value: v}
}

// fromCodeUnits 将读取到的码元还原为 Go 字符串
// 成对的代理项合并为一个字符, 单独的代理项变为 U+FFFD
func fromCodeUnits(units []uint16) string {
	return string(utf16.Decode(units))
}

func formatInt(i int64) string   { return strconv.FormatInt(i, 10) }
func formatUint(u uint64) string { return strconv.FormatUint(u, 10) }
