package pystruct

import (
	"fmt"
	"iter"
	"strings"
)

// Layout 是格式字符串编译后的不可变布局
// 它由按格式字符串从左到右排列的字段和总大小组成
// 创建后永不修改, 因此可以在多个 goroutine 之间无锁共享
//
// Layout is the immutable compiled form of a format string: the ordered
// fields plus the total byte size. It holds no mutable state and is safe
// for concurrent use.
type Layout struct {
	format string
	fields []Field
	size   int
	strict bool
}

// Format 返回编译此布局的格式字符串
func (l *Layout) Format() string { return l.format }

// Size 返回布局的总字节数 (calcsize)
func (l *Layout) Size() int { return l.size }

// NumFields 返回产生值的字段数量 (填充字节不计入)
func (l *Layout) NumFields() int { return len(l.fields) }

// Fields 返回字段的副本, 修改返回值不会影响布局
func (l *Layout) Fields() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// String 返回布局的字符串表示
// 主要用于调试和日志记录
func (l *Layout) String() string {
	parts := make([]string, len(l.fields))
	for i := range l.fields {
		parts[i] = l.fields[i].String()
	}
	return fmt.Sprintf("%q size=%d {%s}", l.format, l.size, strings.Join(parts, ", "))
}

// Pack 分配一个大小为 Size() 的零值缓冲区, 并按字段顺序写入 values
// 默认情况下多余的值被忽略, 缺少的值对应区域保持为零; Strict 选项下数量不一致返回 ErrArity
//
// Pack returns a fresh Size()-byte buffer holding values. Extra values are
// ignored and missing ones stay zero unless the layout was compiled Strict.
func (l *Layout) Pack(values ...any) ([]byte, error) {
	buffer := make([]byte, l.size)
	if err := l.pack(buffer, values); err != nil {
		return nil, err
	}
	return buffer, nil
}

// PackInto 从 offset 开始将 values 写入调用方提供的缓冲区, 并返回该缓冲区
// 缓冲区无法容纳布局时在写入任何字节之前返回 *BufferError
// 字段写入失败时不回滚, 之前的字段已经写入
//
// PackInto writes values into buffer starting at offset. It fails with
// *BufferError before writing anything when the layout does not fit; a
// field error leaves earlier fields written.
func (l *Layout) PackInto(buffer []byte, offset int, values ...any) ([]byte, error) {
	window, err := l.window(buffer, offset)
	if err != nil {
		return buffer, err
	}
	return buffer, l.pack(window, values)
}

func (l *Layout) pack(window []byte, values []any) error {
	if l.strict && len(values) != len(l.fields) {
		return fmt.Errorf("%w: got %d values for %d fields in %q", ErrArity, len(values), len(l.fields), l.format)
	}
	n := min(len(values), len(l.fields))
	for i := 0; i < n; i++ {
		if err := l.fields[i].Set(window, values[i]); err != nil {
			return fmt.Errorf("failed to pack field %d: %w", i, err)
		}
	}
	return nil
}

// Unpack 从缓冲区起点解包, 等价于 UnpackFrom(buffer, 0)
func (l *Layout) Unpack(buffer []byte) ([]any, error) {
	return l.UnpackFrom(buffer, 0)
}

// UnpackFrom 从 offset 开始按字段顺序读取全部值
// 返回值数量恰好等于 NumFields()
//
// UnpackFrom reads one value per field, in format order, starting at offset.
func (l *Layout) UnpackFrom(buffer []byte, offset int) ([]any, error) {
	window, err := l.window(buffer, offset)
	if err != nil {
		return nil, err
	}
	return l.unpack(window), nil
}

func (l *Layout) unpack(window []byte) []any {
	values := make([]any, len(l.fields))
	for i := range l.fields {
		values[i] = l.fields[i].Get(window)
	}
	return values
}

// window 返回 buffer[offset:offset+Size()], 越界时返回 *BufferError
func (l *Layout) window(buffer []byte, offset int) ([]byte, error) {
	if offset < 0 || offset > len(buffer) || len(buffer)-offset < l.size {
		return nil, &BufferError{Offset: offset, Need: l.size, Have: len(buffer)}
	}
	return buffer[offset : offset+l.size], nil
}

// Iter 返回一个从 offset 开始逐条解包记录的迭代器
// 每一步产生一条完整记录 (与 UnpackFrom 的结果相同), 共 (len(buffer)-offset)/Size() 条
// 末尾不足一条记录的字节被忽略
//
// Iter returns a cursor yielding one full record per step over successive
// Size()-byte windows. Trailing bytes shorter than a record are ignored.
func (l *Layout) Iter(buffer []byte, offset int) *Iterator {
	it := &Iterator{layout: l, buffer: buffer, pos: offset}
	if offset < 0 || offset > len(buffer) {
		it.err = &BufferError{Offset: offset, Need: l.size, Have: len(buffer)}
	}
	return it
}

// Records 以 range-over-func 的形式遍历 buffer 中的全部记录
// 产生记录序号和记录值
func (l *Layout) Records(buffer []byte) iter.Seq2[int, []any] {
	return func(yield func(int, []any) bool) {
		it := l.Iter(buffer, 0)
		for it.Next() {
			if !yield(it.Index(), it.Values()) {
				return
			}
		}
	}
}

// Iterator 是逐条读取记录的游标
// 只能通过重新创建来重新开始; 总是有限的
//
// Iterator is a finite, non-restartable record cursor.
type Iterator struct {
	layout  *Layout
	buffer  []byte
	pos     int
	index   int
	started bool
	values  []any
	err     error
}

// Next 读取下一条记录, 没有更多完整记录时返回 false
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	size := it.layout.size
	// 零大小的布局不会产生任何记录, 否则迭代永不结束
	if size == 0 || len(it.buffer)-it.pos < size {
		it.values = nil
		return false
	}
	if it.started {
		it.index++
	}
	it.started = true
	it.values = it.layout.unpack(it.buffer[it.pos : it.pos+size])
	it.pos += size
	return true
}

// Values 返回当前记录的值
func (it *Iterator) Values() []any { return it.values }

// Index 返回当前记录的序号, 从 0 开始
func (it *Iterator) Index() int { return it.index }

// Remaining 返回尚未读取的完整记录数
func (it *Iterator) Remaining() int {
	if it.err != nil || it.layout.size == 0 || it.pos > len(it.buffer) {
		return 0
	}
	return (len(it.buffer) - it.pos) / it.layout.size
}

// Err 返回创建迭代器时检测到的错误 (例如越界的 offset)
func (it *Iterator) Err() error { return it.err }
