package pystruct

import (
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackIntegers(t *testing.T) {
	tests := []struct {
		name   string
		format string
		value  any
		want   []byte
	}{
		{"BE 0 as int32", ">i", 0, []byte{0, 0, 0, 0}},
		{"BE 1 as int32", ">i", 1, []byte{0, 0, 0, 1}},
		{"LE 1 as int32", "<i", 1, []byte{1, 0, 0, 0}},
		{"BE -1 as int32", ">i", -1, []byte{255, 255, 255, 255}},
		{"BE max int32", ">i", math.MaxInt32, []byte{127, 255, 255, 255}},
		{"BE max uint32", ">I", uint32(math.MaxUint32), []byte{255, 255, 255, 255}},
		{"LE 1 as uint32", "<I", 1, []byte{1, 0, 0, 0}},
		{"BE -1 as int16", ">h", -1, []byte{255, 255}},
		{"BE max int16", ">h", math.MaxInt16, []byte{127, 255}},
		{"LE 1 as uint16", "<H", 1, []byte{1, 0}},
		{"BE max uint16", ">H", 65535, []byte{255, 255}},
		{"min int8", "b", -128, []byte{128}},
		{"max int8", "b", 127, []byte{127}},
		{"char", "c", int('a'), []byte{'a'}},
		{"max uint8", "B", 255, []byte{255}},
		{"LE int64", "<q", int64(-2), []byte{254, 255, 255, 255, 255, 255, 255, 255}},
		{"BE max uint64", ">Q", uint64(math.MaxUint64), []byte{255, 255, 255, 255, 255, 255, 255, 255}},
		{"big.Int uint64", ">Q", new(big.Int).SetUint64(math.MaxUint64), []byte{255, 255, 255, 255, 255, 255, 255, 255}},
		{"integral float", ">h", 3.0, []byte{0, 3}},
		{"l is 4 bytes", "<l", 5, []byte{5, 0, 0, 0}},
		{"N is 8 bytes", ">N", 6, []byte{0, 0, 0, 0, 0, 0, 0, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Pack(tt.format, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPackIntegerRange(t *testing.T) {
	tests := []struct {
		format string
		value  any
		min    string
		max    string
	}{
		{">i", int64(1) << 32, "-2147483648", "2147483647"},
		{">I", -1, "0", "4294967295"},
		{">h", 1 << 16, "-32768", "32767"},
		{">H", 1 << 16, "0", "65535"},
		{"b", 128, "-128", "127"},
		{"b", -129, "-128", "127"},
		{"B", 256, "0", "255"},
		{"B", -1, "0", "255"},
		{"q", uint64(math.MaxUint64), "-9223372036854775808", "9223372036854775807"},
		{"Q", -1, "0", "18446744073709551615"},
		{"q", new(big.Int).Lsh(big.NewInt(1), 64), "-9223372036854775808", "9223372036854775807"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := Pack(tt.format, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRange))

			var re *RangeError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.min, re.Min)
			assert.Equal(t, tt.max, re.Max)
		})
	}
}

func TestPackInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		format string
		value  any
	}{
		{"string as int", "i", "7"},
		{"fraction as int", "i", 1.5},
		{"NaN as int", "q", math.NaN()},
		{"struct as float", "d", struct{}{}},
		{"int as string", "4s", 42},
		{"negative handle", "P", -1},
		{"nil big.Int", "Q", (*big.Int)(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Pack(tt.format, tt.value)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidValue), err.Error())
		})
	}
}

func TestPackFloats(t *testing.T) {
	tests := []struct {
		format string
		value  float64
		want   []byte
	}{
		{">f", 0, []byte{0, 0, 0, 0}},
		{">f", .000001, []byte{53, 134, 55, 189}},
		{">f", 1, []byte{63, 128, 0, 0}},
		{">f", -1, []byte{191, 128, 0, 0}},
		{">f", 1024, []byte{68, 128, 0, 0}},
		{">f", 1024.1, []byte{68, 128, 3, 51}},
		{"<f", .000001, []byte{189, 55, 134, 53}},
		{"<f", 1024.1, []byte{51, 3, 128, 68}},
		{">d", .000001, []byte{62, 176, 198, 247, 160, 181, 237, 141}},
		{">d", 1, []byte{63, 240, 0, 0, 0, 0, 0, 0}},
		{">d", -1, []byte{191, 240, 0, 0, 0, 0, 0, 0}},
		{">d", 1024.1, []byte{64, 144, 0, 102, 102, 102, 102, 102}},
		{"<d", 1024, []byte{0, 0, 0, 0, 0, 0, 144, 64}},
		{"<d", 1024.1, []byte{102, 102, 102, 102, 102, 0, 144, 64}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := Pack(tt.format, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := Unpack(tt.format, got)
			require.NoError(t, err)
			if tt.format[1] == 'f' {
				assert.Equal(t, float32(tt.value), back[0])
			} else {
				assert.Equal(t, tt.value, back[0])
			}
		})
	}

	t.Run("integers accepted", func(t *testing.T) {
		got, err := Pack(">d", 1024)
		require.NoError(t, err)
		assert.Equal(t, []byte{64, 144, 0, 0, 0, 0, 0, 0}, got)
	})
}

func TestPackBool(t *testing.T) {
	tests := []struct {
		value any
		want  byte
	}{
		{true, 1}, {false, 0}, {1, 1}, {0, 0}, {-3, 1},
		{"", 0}, {"x", 1}, {nil, 0}, {0.0, 0}, {2.5, 1},
	}

	for _, tt := range tests {
		got, err := Pack("?", tt.value)
		require.NoError(t, err)
		assert.Equal(t, []byte{tt.want}, got, "%#v", tt.value)
	}

	values, err := Unpack("??", []byte{0, 7})
	require.NoError(t, err)
	assert.Equal(t, []any{false, true}, values)
}

func TestPointerNativeOrder(t *testing.T) {
	// 指针字段忽略布局声明的字节序
	for _, format := range []string{"<P", ">P", "!p", "@p"} {
		got, err := Pack(format, Handle(0x0102030405060708))
		require.NoError(t, err)
		assert.Equal(t, binary.NativeEndian.AppendUint64(nil, 0x0102030405060708), got, format)

		values, err := Unpack(format, got)
		require.NoError(t, err)
		assert.Equal(t, []any{Handle(0x0102030405060708)}, values, format)
	}

	got, err := Pack(">P", 1)
	require.NoError(t, err)
	assert.Equal(t, binary.NativeEndian.AppendUint64(nil, 1), got)
}

func TestPackStrings(t *testing.T) {
	tests := []struct {
		name   string
		format string
		value  any
		want   []byte
	}{
		{"8bit", "3s", "123", []byte{49, 50, 51}},
		{"8bit truncate", "3s", "1234", []byte{49, 50, 51}},
		{"explicit 8bit", "3.8s", "1234", []byte{49, 50, 51}},
		{"8bit zero fill", "5s", "12", []byte{49, 50, 0, 0, 0}},
		{"16bit LE", "<3.16s", "1234", []byte{49, 0, 50, 0, 51, 0}},
		{"16bit BE", ">3.16s", "123", []byte{0, 49, 0, 50, 0, 51}},
		{"32bit LE", "<3.32s", "1234", []byte{49, 0, 0, 0, 50, 0, 0, 0, 51, 0, 0, 0}},
		{"32bit BE", ">3.32s", "123", []byte{0, 0, 0, 49, 0, 0, 0, 50, 0, 0, 0, 51}},
		{"16bit LE emoji", "<4.16s", "1🔥3", []byte{49, 0, 61, 216, 37, 221, 51, 0}},
		{"16bit BE emoji", ">4.16s", "1🔥3", []byte{0, 49, 216, 61, 221, 37, 0, 51}},
		{"32bit LE emoji", "<4.32s", "1🔥3", []byte{49, 0, 0, 0, 61, 216, 0, 0, 37, 221, 0, 0, 51, 0, 0, 0}},
		{"32bit BE emoji", ">4.32s", "1🔥3", []byte{0, 0, 0, 49, 0, 0, 216, 61, 0, 0, 221, 37, 0, 0, 0, 51}},
		{"8bit keeps low byte", "2s", "é€", []byte{0xE9, 0xAC}},
		{"bytes verbatim", "4s", []byte{0xFF, 0x00, 0x41}, []byte{0xFF, 0x00, 0x41, 0}},
		{"bytes widened", "<2.16s", []byte{0xFF, 0x41}, []byte{0xFF, 0, 0x41, 0}},
		{"runes", "<2.16s", []rune("hi"), []byte{'h', 0, 'i', 0}},
		{"code units", ">1.16s", []uint16{0xD83D}, []byte{0xD8, 0x3D}},
		{"nil", "2s", nil, []byte{0, 0}},
		{"zero capacity", "0s", "abc", []byte{}},
		{"string then int", "<3si", []any{"123", 1}, []byte{49, 50, 51, 1, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := []any{tt.value}
			if vs, ok := tt.value.([]any); ok {
				values = vs
			}
			got, err := Pack(tt.format, values...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("aligned after string", func(t *testing.T) {
		got, err := Pack("@3si", "123", 1)
		require.NoError(t, err)
		want := append([]byte{49, 50, 51, 0}, binary.NativeEndian.AppendUint32(nil, 1)...)
		assert.Equal(t, want, got)
	})
}

func TestUnpackStrings(t *testing.T) {
	tests := []struct {
		name   string
		format string
		buffer []byte
		want   string
	}{
		{"8bit", "3.8s", []byte{49, 50, 51}, "123"},
		{"16bit LE", "<3.16s", []byte{49, 0, 50, 0, 51, 0}, "123"},
		{"16bit BE", ">3.16s", []byte{0, 49, 0, 50, 0, 51}, "123"},
		{"32bit LE", "<3.32s", []byte{49, 0, 0, 0, 50, 0, 0, 0, 51, 0, 0, 0}, "123"},
		{"32bit BE", ">3.32s", []byte{0, 0, 0, 49, 0, 0, 0, 50, 0, 0, 0, 51}, "123"},
		{"16bit emoji", "<4.16s", []byte{49, 0, 61, 216, 37, 221, 51, 0}, "1🔥3"},
		{"32bit emoji surrogates", ">4.32s", []byte{0, 0, 0, 49, 0, 0, 216, 61, 0, 0, 221, 37, 0, 0, 0, 51}, "1🔥3"},
		{"32bit code point", "<1.32s", []byte{0x25, 0xF5, 0x01, 0}, "🔥"},
		{"stops at first zero", "5s", []byte{'a', 0, 'b', 0, 0}, "a"},
		{"drops padding", "<10.16s", append([]byte{49, 0, 50, 0, 51, 0}, make([]byte, 14)...), "123"},
		{"empty", "3s", []byte{0, 0, 0}, ""},
		{"lone surrogate", "<1.16s", []byte{0x3D, 0xD8}, "�"},
		{"beyond max rune", "<2.32s", []byte{0, 0, 0x11, 0, 'a', 0, 0, 0}, "\uFFFDa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := Unpack(tt.format, tt.buffer)
			require.NoError(t, err)
			assert.Equal(t, []any{tt.want}, values)
		})
	}
}

func TestUnpackIntegers(t *testing.T) {
	buffer := []byte{
		2, 0, 0, 0, 0, 0, 0, 0,
		3, 0, 0, 0, 0, 0, 0, 0,
		4, 0, 0, 0, 0, 0, 0, 0,
		5, 0, 0, 0, 0, 0, 0, 0,
		6, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 224, 64, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 32, 64,
	}
	values, err := Unpack("<b7xh6xi4xl4xqf4xd", buffer)
	require.NoError(t, err)
	assert.Equal(t, []any{int8(2), int16(3), int32(4), int32(5), int64(6), float32(7), float64(8)}, values)

	unsigned := []byte{
		1, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0, 0, 0, 0, 0,
		3, 0, 0, 0, 0, 0, 0, 0,
		4, 0, 0, 0, 0, 0, 0, 0,
		5, 0, 0, 0, 0, 0, 0, 0,
	}
	values, err = Unpack("<B7xH6xI4xL4xQ", unsigned)
	require.NoError(t, err)
	assert.Equal(t, []any{uint8(1), uint16(2), uint32(3), uint32(4), uint64(5)}, values)

	values, err = Unpack(">qQ", []byte{
		0x80, 0, 0, 0, 0, 0, 0, 0,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(math.MinInt64), uint64(math.MaxUint64)}, values)
}

func TestFieldString(t *testing.T) {
	l := MustCompile(">bIP")
	fields := l.Fields()
	assert.Equal(t, "{type: int8, offset: 0, size: 1}", fields[0].String())
	assert.Equal(t, "{type: uint32, offset: 1, size: 4, order: big}", fields[1].String())
	assert.Equal(t, "{type: pointer, offset: 5, size: 8}", fields[2].String())
}
