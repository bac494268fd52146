package main

import (
	"fmt"
	"strconv"

	"github.com/shengyanli1982/pystruct"
)

// parseValues 按字段类型解析命令行参数
// 多余的参数以原始字符串传递, 由布局决定忽略还是报错 (--strict)
func parseValues(layout *pystruct.Layout, args []string) ([]any, error) {
	fields := layout.Fields()
	values := make([]any, len(args))
	for i, arg := range args {
		if i >= len(fields) {
			values[i] = arg
			continue
		}
		v, err := parseValue(fields[i], arg)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%q) for %c: %w", i, arg, fields[i].Directive, err)
		}
		values[i] = v
	}
	return values, nil
}

func parseValue(field pystruct.Field, arg string) (any, error) {
	switch {
	case field.Kind.IsInteger() && field.Kind.IsSigned():
		return strconv.ParseInt(arg, 0, 64)
	case field.Kind.IsInteger():
		return strconv.ParseUint(arg, 0, 64)
	}

	switch field.Kind {
	case pystruct.Bool:
		return strconv.ParseBool(arg)
	case pystruct.Float32, pystruct.Float64:
		return strconv.ParseFloat(arg, 64)
	case pystruct.Pointer:
		u, err := strconv.ParseUint(arg, 0, 64)
		return pystruct.Handle(u), err
	default:
		return arg, nil
	}
}
