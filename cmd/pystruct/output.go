package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/shengyanli1982/pystruct"
)

// encMode 使用 Core Deterministic Encoding, 相同的数据总是得到相同的字节
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("pystruct: CBOR encoder initialization failed: " + err.Error())
	}
}

// fieldInfo 是 describe 子命令输出的单个字段
type fieldInfo struct {
	Index     int    `json:"index" yaml:"index" cbor:"index"`
	Directive string `json:"directive" yaml:"directive" cbor:"directive"`
	Kind      string `json:"kind" yaml:"kind" cbor:"kind"`
	Offset    int    `json:"offset" yaml:"offset" cbor:"offset"`
	Size      int    `json:"size" yaml:"size" cbor:"size"`
	Order     string `json:"order,omitempty" yaml:"order,omitempty" cbor:"order,omitempty"`
	Capacity  int    `json:"capacity,omitempty" yaml:"capacity,omitempty" cbor:"capacity,omitempty"`
	Width     int    `json:"width,omitempty" yaml:"width,omitempty" cbor:"width,omitempty"`
}

type layoutInfo struct {
	Format string      `json:"format" yaml:"format" cbor:"format"`
	Size   int         `json:"size" yaml:"size" cbor:"size"`
	Fields []fieldInfo `json:"fields" yaml:"fields" cbor:"fields"`
}

func describe(layout *pystruct.Layout) layoutInfo {
	info := layoutInfo{Format: layout.Format(), Size: layout.Size(), Fields: []fieldInfo{}}
	for i, f := range layout.Fields() {
		fi := fieldInfo{
			Index:     i,
			Directive: string(f.Directive),
			Kind:      f.Kind.String(),
			Offset:    f.Offset,
			Size:      f.Size,
		}
		switch {
		case f.Kind == pystruct.Pointer:
			fi.Order = "native"
		case f.Kind == pystruct.String && f.Width == 1, f.Size == 1:
		case f.LittleEndian:
			fi.Order = "little"
		default:
			fi.Order = "big"
		}
		if f.Kind == pystruct.String {
			fi.Capacity = f.Capacity
			fi.Width = f.Width * 8
		}
		info.Fields = append(info.Fields, fi)
	}
	return info
}

// render 以指定编码输出 v; cbor 输出为十六进制文本
func render(w io.Writer, output string, v any) error {
	switch output {
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(v); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return encoder.Close()
	case "cbor":
		data, err := encMode.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding cbor: %w", err)
		}
		_, err = fmt.Fprintln(w, hex.EncodeToString(data))
		return err
	default:
		data, err := json.Marshal(finiteJSON(v))
		if err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
}

// finiteJSON 将 NaN 与 ±Inf 替换为字符串形式, JSON 无法表示这些浮点值
func finiteJSON(v any) any {
	switch t := v.(type) {
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return strconv.FormatFloat(float64(t), 'g', -1, 32)
		}
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return strconv.FormatFloat(t, 'g', -1, 64)
		}
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = finiteJSON(e)
		}
		return out
	case [][]any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = finiteJSON(e)
		}
		return out
	}
	return v
}
