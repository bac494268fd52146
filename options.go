package pystruct

// defaultOptions 是默认的编译选项实例
// 用于避免重复分配内存
var defaultOptions = &Options{}

// Options 定义了布局编译与打包的配置选项
//
// Options configures compilation and packing.
type Options struct {
	// Strict 为 true 时, 打包值的数量必须与字段数量完全一致, 否则返回 ErrArity
	// 默认 (false) 多余的值被忽略, 缺少的值保持零填充
	Strict bool

	// NoCache 为 true 时, 包级函数每次都重新编译格式字符串
	NoCache bool
}

// resolveOptions 返回 o, 为 nil 时返回默认选项
func resolveOptions(o *Options) *Options {
	if o == nil {
		return defaultOptions
	}
	return o
}
