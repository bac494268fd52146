package pystruct

// Kind 定义了编译后字段的类型枚举
// Kind enumerates the value kinds a compiled field can hold
type Kind int

const (
	Invalid Kind = iota // 无效类型
	Pad                 // 填充字节, 不产生字段
	Int8                // 8位有符号整数 (b, c)
	Uint8               // 8位无符号整数 (B)
	Bool                // 单字节布尔值 (?)
	Int16               // 16位有符号整数 (h)
	Uint16              // 16位无符号整数 (H)
	Int32               // 32位有符号整数 (i, l)
	Uint32              // 32位无符号整数 (I, L)
	Int64               // 64位有符号整数 (q, n)
	Uint64              // 64位无符号整数 (Q, N)
	Float32             // 32位浮点数 (f)
	Float64             // 64位浮点数 (d)
	String              // 定长字符串 (s, .8s, .16s, .32s)
	Pointer             // 不透明的 8 字节句柄 (p, P)
)

// String 返回类型的字符串表示
func (k Kind) String() string {
	if s, ok := kindToString[k]; ok {
		return s
	}
	return kindToString[Invalid]
}

// Size 返回标量类型的字节大小
// 字符串的大小由容量和码元宽度决定, 这里返回单个 8 位码元的大小
func (k Kind) Size() int {
	switch k {
	case Pad, Int8, Uint8, Bool, String:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Pointer:
		return 8
	default:
		panic("pystruct: cannot resolve size of kind " + k.String())
	}
}

// IsInteger 判断是否为整数类型 (不含布尔和指针)
func (k Kind) IsInteger() bool {
	switch k {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	default:
		return false
	}
}

// IsSigned 判断整数类型是否有符号
func (k Kind) IsSigned() bool {
	switch k {
	case Int8, Int16, Int32, Int64:
		return true
	default:
		return false
	}
}

var kindToString = map[Kind]string{
	Invalid: "invalid",
	Pad:     "pad",
	Int8:    "int8",
	Uint8:   "uint8",
	Bool:    "bool8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	String:  "string",
	Pointer: "pointer",
}

// directiveToKind 定义了格式字符到字段类型的映射关系
// l/L 与 i/I 相同, n/N 与 q/Q 相同: 目标大小固定为 4 和 8 字节, 与主机指针宽度无关
//
// directiveToKind maps scalar format characters to field kinds.
var directiveToKind = map[byte]Kind{
	'x': Pad,
	'c': Int8,
	'b': Int8,
	'B': Uint8,
	'?': Bool,
	'h': Int16,
	'H': Uint16,
	'i': Int32,
	'l': Int32,
	'I': Uint32,
	'L': Uint32,
	'q': Int64,
	'n': Int64,
	'Q': Uint64,
	'N': Uint64,
	'f': Float32,
	'd': Float64,
	's': String,
	'p': Pointer,
	'P': Pointer,
}

// kindToDirective 是 directiveToKind 的规范反向映射, 用于重建格式字符串
var kindToDirective = map[Kind]byte{
	Pad:     'x',
	Int8:    'b',
	Uint8:   'B',
	Bool:    '?',
	Int16:   'h',
	Uint16:  'H',
	Int32:   'i',
	Uint32:  'I',
	Int64:   'q',
	Uint64:  'Q',
	Float32: 'f',
	Float64: 'd',
	String:  's',
	Pointer: 'P',
}

// Handle 是指针字段 (p, P) 的值类型, 一个不透明的 64 位句柄
// 总是按本机字节序编码, 与布局配置的字节序无关
//
// Handle is the value of a pointer field: an opaque 64-bit handle,
// always encoded in native byte order.
type Handle uint64
