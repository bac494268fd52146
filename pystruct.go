// Package pystruct converts between Go values and fixed-layout byte buffers
// described by compact format strings, in the manner of Python's struct module.
// pystruct 包使用紧凑的格式字符串, 在 Go 值与 C 结构体风格的定长字节缓冲区之间转换。
//
// 格式字符串先被编译成不可变的布局 (Layout), 然后可以被任意多次、并发地用于打包和解包。
//
// A format string is compiled once into an immutable Layout which is then
// reused, concurrently if needed, for any number of pack/unpack calls.
//
// Byte order, size and alignment (first character, may change mid-string):
//
//	@  native order, 4-byte alignment
//	=  native order, no alignment
//	<  little-endian, no alignment
//	>  big-endian, no alignment
//	!  network (big-endian), no alignment
//
// Directives:
//
//	x pad   c b int8   B uint8   ? bool   h int16   H uint16
//	i l int32   I L uint32   q n int64   Q N uint64
//	f float32   d float64   p P Handle (native order)
//	s string; "10s" holds 10 code units, "10.16s" uses 16-bit code units
package pystruct

import (
	"sync"

	"go.uber.org/zap"
)

// layoutCacheKey 是编译布局缓存的键
type layoutCacheKey struct {
	format string
	strict bool
}

// compiledLayoutCache 存储包级函数编译过的布局
// 布局不可变, 因此直接共享缓存中的指针
//
// compiledLayoutCache stores layouts compiled by the package-level functions.
var compiledLayoutCache = sync.Map{}

// compileCached 从缓存获取布局, 未命中时编译并存入缓存
// 编译失败的格式字符串不会被缓存
func compileCached(format string, options *Options) (*Layout, error) {
	options = resolveOptions(options)
	if options.NoCache {
		return CompileWithOptions(format, options)
	}

	key := layoutCacheKey{format: format, strict: options.Strict}
	if cached, ok := compiledLayoutCache.Load(key); ok {
		Logger().Debug("layout cache hit", zap.String("format", format))
		return cached.(*Layout), nil
	}

	l, err := CompileWithOptions(format, options)
	if err != nil {
		return nil, err
	}
	actual, _ := compiledLayoutCache.LoadOrStore(key, l)
	Logger().Debug("layout cache miss", zap.String("format", format))
	return actual.(*Layout), nil
}

// CalcSize 返回格式字符串对应的字节数
// CalcSize returns the size of the layout described by format.
func CalcSize(format string) (int, error) {
	l, err := compileCached(format, nil)
	if err != nil {
		return 0, err
	}
	return l.Size(), nil
}

// Pack 使用默认选项按格式字符串打包 values
// 这是一个便捷方法, 内部调用 PackWithOptions
//
// Pack packs values according to format using default options.
func Pack(format string, values ...any) ([]byte, error) {
	return PackWithOptions(format, nil, values...)
}

// PackWithOptions 使用指定的选项按格式字符串打包 values
func PackWithOptions(format string, options *Options, values ...any) ([]byte, error) {
	l, err := compileCached(format, options)
	if err != nil {
		return nil, err
	}
	return l.Pack(values...)
}

// PackInto 按格式字符串将 values 写入 buffer 的 offset 处, 并返回 buffer
func PackInto(format string, buffer []byte, offset int, values ...any) ([]byte, error) {
	l, err := compileCached(format, nil)
	if err != nil {
		return buffer, err
	}
	return l.PackInto(buffer, offset, values...)
}

// Unpack 从 buffer 起点按格式字符串解包
func Unpack(format string, buffer []byte) ([]any, error) {
	return UnpackFrom(format, buffer, 0)
}

// UnpackFrom 从 buffer 的 offset 处按格式字符串解包
func UnpackFrom(format string, buffer []byte, offset int) ([]any, error) {
	l, err := compileCached(format, nil)
	if err != nil {
		return nil, err
	}
	return l.UnpackFrom(buffer, offset)
}

// IterUnpack 返回一个逐条读取 buffer 中记录的迭代器
// IterUnpack returns a cursor over the successive records stored in buffer.
func IterUnpack(format string, buffer []byte) (*Iterator, error) {
	l, err := compileCached(format, nil)
	if err != nil {
		return nil, err
	}
	return l.Iter(buffer, 0), nil
}
