package pystruct

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// 标签格式示例：struc:"int32,little" 或 struc:"[10]byte"
// Tag format example: struc:"int32,little" or struc:"[10]byte"

// strucTag 定义了结构体字段标签的解析结果
// strucTag defines the parsed result of struct field tags
type strucTag struct {
	Type  string // 字段类型 / Field type
	Order byte   // 字节序: '<', '>' 或 0 表示默认 / Byte order, 0 means default
	Skip  bool   // 是否跳过 / Whether to skip
}

// parseStrucTag 解析结构体字段的标签
// parseStrucTag parses the tags of struct fields
func parseStrucTag(tag reflect.StructTag) (*strucTag, error) {
	t := &strucTag{}

	// 获取 struc 标签，如果不存在则尝试获取 struct 标签（容错处理）
	// Get struc tag, fallback to struct tag if not found (error tolerance)
	tagStr := tag.Get("struc")
	if tagStr == "" {
		tagStr = tag.Get("struct")
	}

	for _, s := range strings.Split(tagStr, ",") {
		switch {
		case s == "":
		case s == "-" || s == "skip":
			t.Skip = true
		case s == "big":
			t.Order = '>'
		case s == "little":
			t.Order = '<'
		case strings.HasPrefix(s, "sizeof=") || strings.HasPrefix(s, "sizefrom="):
			// 只支持定长的扁平布局
			// Only fixed-size flat layouts are supported
			return nil, fmt.Errorf("pystruct: %q is not supported, layouts have a fixed size", s)
		default:
			t.Type = s
		}
	}
	return t, nil
}

// typeStrToKind 定义了标签类型字符串到字段类型的映射关系
var typeStrToKind = map[string]Kind{
	"pad":     Pad,
	"bool":    Bool,
	"byte":    Uint8,
	"char":    Int8,
	"int8":    Int8,
	"uint8":   Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float32": Float32,
	"float64": Float64,
	"string":  String,
	"handle":  Pointer,
}

// reflectKindToKind 定义了 reflect.Kind 到字段类型的默认映射关系
var reflectKindToKind = map[reflect.Kind]Kind{
	reflect.Bool:    Bool,
	reflect.Int8:    Int8,
	reflect.Int16:   Int16,
	reflect.Int:     Int32,
	reflect.Int32:   Int32,
	reflect.Int64:   Int64,
	reflect.Uint8:   Uint8,
	reflect.Uint16:  Uint16,
	reflect.Uint:    Uint32,
	reflect.Uint32:  Uint32,
	reflect.Uint64:  Uint64,
	reflect.Uintptr: Pointer,
	reflect.Float32: Float32,
	reflect.Float64: Float64,
	reflect.String:  String,
}

var handleType = reflect.TypeOf(Handle(0))

// arrayLengthParseRegex 用于匹配数组长度的正则表达式
// arrayLengthParseRegex is a regular expression for matching array length
var arrayLengthParseRegex = regexp.MustCompile(`^\[(\d*)\]`)

// structField 描述结构体中一个参与打包的字段
// structField describes one packed field of a flat struct
type structField struct {
	Name   string
	Index  int
	Kind   Kind
	Length int  // 元素个数, 字符串为码元容量, 填充为字节数 / element count
	IsList bool // Go 字段是数组或切片, 每个元素一个值 / one value per element
	Order  byte
}

// String returns a string representation of the struct field.
func (f structField) String() string {
	return fmt.Sprintf("{name: %s, type: %s, len: %d}", f.Name, f.Kind, f.Length)
}

// parseStructField 解析单个结构体字段
// parseStructField parses a single struct field
func parseStructField(sf reflect.StructField) (*structField, bool, error) {
	tag, err := parseStrucTag(sf.Tag)
	if err != nil {
		return nil, false, fmt.Errorf("field %s: %w", sf.Name, err)
	}
	if tag.Skip || !sf.IsExported() {
		return nil, false, nil
	}

	fd := &structField{Name: sf.Name, Index: sf.Index[0], Length: 1, Order: tag.Order}
	typ := sf.Type

	// 处理数组和切片
	// Handle arrays and slices
	elem := typ
	switch typ.Kind() {
	case reflect.Array:
		fd.Length = typ.Len()
		fd.IsList = true
		elem = typ.Elem()
	case reflect.Slice:
		fd.Length = -1
		fd.IsList = true
		elem = typ.Elem()
	case reflect.Struct, reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return nil, false, fmt.Errorf("pystruct: field %s of type %s cannot be part of a flat layout", sf.Name, typ)
	}

	// 从结构体标签中查找类型
	// Find type in struct tag
	pureType := arrayLengthParseRegex.ReplaceAllLiteralString(tag.Type, "")
	if tag.Type != "" {
		kind, ok := typeStrToKind[pureType]
		if !ok {
			return nil, false, fmt.Errorf("pystruct: field %s has unknown type %q", sf.Name, tag.Type)
		}
		fd.Kind = kind
		if match := arrayLengthParseRegex.FindStringSubmatch(tag.Type); match != nil {
			if match[1] == "" {
				return nil, false, fmt.Errorf("pystruct: field %s is a slice with no fixed length", sf.Name)
			}
			if fd.Length, err = strconv.Atoi(match[1]); err != nil {
				return nil, false, fmt.Errorf("pystruct: field %s: %w", sf.Name, err)
			}
		} else if !fd.IsList && kind != String {
			fd.Length = 1
		}
	} else {
		kind, ok := reflectKindToKind[elem.Kind()]
		if !ok {
			return nil, false, fmt.Errorf("pystruct: could not resolve field %s type %s", sf.Name, sf.Type)
		}
		if elem == handleType {
			kind = Pointer
		}
		fd.Kind = kind
	}

	// 字节数组与字符串打包为单个 s 字段
	// Byte arrays and strings pack as a single 's' field
	if fd.IsList && elem.Kind() == reflect.Uint8 && (fd.Kind == Uint8 || fd.Kind == String) {
		fd.Kind = String
		fd.IsList = false
	}
	if fd.Kind == Pad {
		fd.IsList = false
	}
	if typ.Kind() == reflect.String && fd.Kind == Uint8 {
		fd.Kind = String
	}

	if typ.Kind() == reflect.String && fd.Kind != String {
		return nil, false, fmt.Errorf("pystruct: string field %s must be tagged as bytes, e.g. [16]byte", sf.Name)
	}
	if fd.Length < 0 {
		return nil, false, fmt.Errorf("pystruct: field %s is a slice with no fixed length", sf.Name)
	}
	if fd.Kind == String && typ.Kind() == reflect.String && (tag.Type == "" || !arrayLengthParseRegex.MatchString(tag.Type)) {
		return nil, false, fmt.Errorf("pystruct: string field %s needs a fixed length tag such as [16]byte", sf.Name)
	}
	return fd, true, nil
}

// parseStructFields 解析结构体类型的所有字段
// parseStructFields parses all fields of a struct type
func parseStructFields(t reflect.Type) ([]structField, error) {
	if t.NumField() < 1 {
		return nil, fmt.Errorf("pystruct: struct %s has no fields", t)
	}
	fields := make([]structField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f, ok, err := parseStructField(t.Field(i))
		if err != nil {
			return nil, err
		}
		if ok {
			fields = append(fields, *f)
		}
	}
	return fields, nil
}

// structPlan 是一个结构体类型的打包计划: 字段描述、格式字符串与编译后的布局
type structPlan struct {
	fields []structField
	format string
	layout *Layout
}

// Cache for parsed struct plans to improve performance
// 缓存已解析的结构体计划以提高性能
var parsedStructPlanCache = sync.Map{}

// planFor 返回结构体类型的打包计划, 优先从缓存中读取
// planFor returns the plan for a struct type, consulting the cache first
func planFor(t reflect.Type) (*structPlan, error) {
	if cached, ok := parsedStructPlanCache.Load(t); ok {
		return cached.(*structPlan), nil
	}

	fields, err := parseStructFields(t)
	if err != nil {
		return nil, err
	}
	format, err := buildFormatString(fields)
	if err != nil {
		return nil, err
	}
	layout, err := Compile(format)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q for %s: %w", format, t, err)
	}

	plan := &structPlan{fields: fields, format: format, layout: layout}
	actual, _ := parsedStructPlanCache.LoadOrStore(t, plan)
	return actual.(*structPlan), nil
}
