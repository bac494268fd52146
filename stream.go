package pystruct

import (
	"fmt"
	"io"
	"sync"
)

// recordBufferPool 复用流式读写时的记录缓冲区
// recordBufferPool reuses record buffers for streaming reads and writes
var recordBufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 64)
		return &b
	},
}

// acquireRecord 从对象池获取长度为 size 的零值缓冲区
func acquireRecord(size int) *[]byte {
	b := recordBufferPool.Get().(*[]byte)
	if cap(*b) < size {
		*b = make([]byte, size)
	} else {
		*b = (*b)[:size]
		clear(*b)
	}
	return b
}

// releaseRecord 将缓冲区放回对象池
func releaseRecord(b *[]byte) {
	if b == nil || cap(*b) > MaxCapSize {
		return
	}
	recordBufferPool.Put(b)
}

// Write 将 values 打包为一条记录并写入 w
// 返回写入的字节数
//
// Write packs values as one record and writes it to w.
func (l *Layout) Write(w io.Writer, values ...any) (int, error) {
	buffer := acquireRecord(l.size)
	defer releaseRecord(buffer)

	if err := l.pack(*buffer, values); err != nil {
		return 0, err
	}
	return w.Write(*buffer)
}

// Read 从 r 中读取恰好 Size() 个字节并解包为一条记录
// 数据不足一条记录时返回 io.ErrUnexpectedEOF, 没有任何数据时返回 io.EOF
//
// Read reads exactly one record from r.
func (l *Layout) Read(r io.Reader) ([]any, error) {
	buffer := acquireRecord(l.size)
	defer releaseRecord(buffer)

	if _, err := io.ReadFull(r, *buffer); err != nil {
		return nil, err
	}
	return l.unpack(*buffer), nil
}

// MarshalTo 打包结构体并写入 w
// MarshalTo packs a flat struct and writes it to w.
func MarshalTo(w io.Writer, data interface{}) error {
	buffer, err := Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.Write(buffer)
	return err
}

// UnmarshalFrom 从 r 中读取一条记录并写入结构体
// UnmarshalFrom reads one record from r into the struct pointed to by data.
func UnmarshalFrom(r io.Reader, data interface{}) error {
	t, err := structType(data)
	if err != nil {
		return err
	}
	plan, err := planFor(t)
	if err != nil {
		return fmt.Errorf("preparation failed: %w", err)
	}

	buffer := acquireRecord(plan.layout.Size())
	defer releaseRecord(buffer)
	if _, err := io.ReadFull(r, *buffer); err != nil {
		return err
	}
	return Unmarshal(*buffer, data)
}
