package pystruct

import (
	"bytes"
	"sync"
)

// MaxCapSize 定义了缓冲区的最大容量限制
// 超过此限制的缓冲区不会被放入对象池
//
// MaxCapSize defines the maximum capacity limit for buffers
// Buffers exceeding this limit will not be put into the object pool
const MaxCapSize = 1 << 20

// bufferPool 用于减少格式化字段与格式字符串时的内存分配
// bufferPool is used to reduce allocations when rendering fields and format strings
var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

// acquireBuffer 从对象池获取缓冲区
// acquireBuffer gets a buffer from the pool
func acquireBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// releaseBuffer 将缓冲区放回对象池
// releaseBuffer returns a buffer to the pool
func releaseBuffer(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > MaxCapSize {
		return
	}

	buf.Reset()
	bufferPool.Put(buf)
}

// valuesPool 复用 Marshal 过程中扁平化结构体得到的值切片
// valuesPool reuses the flattened value slices built by Marshal
var valuesPool = sync.Pool{
	New: func() interface{} {
		s := make([]any, 0, 16)
		return &s
	},
}

func acquireValues() *[]any {
	return valuesPool.Get().(*[]any)
}

func releaseValues(s *[]any) {
	if s == nil || cap(*s) > 1024 {
		return
	}
	clear(*s)
	*s = (*s)[:0]
	valuesPool.Put(s)
}
