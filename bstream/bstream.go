package bstream

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/battleforge-tools/drsbrowser/utils"
)

// Reader is a little-endian cursor over an in-memory payload. The first
// out-of-bounds access latches an error; every access after that returns
// zero values so record parsing code can stay check-free until the end.
type Reader struct {
	data []byte
	pos  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Pos() int       { return r.pos }
func (r *Reader) Remaining() int { return len(r.data) - r.pos }
func (r *Reader) Error() error   { return r.err }

func (r *Reader) SetPos(pos int) {
	if r.err != nil {
		return
	}
	if pos < 0 || pos > len(r.data) {
		r.err = errors.Errorf("seek to 0x%x outside of payload of size 0x%x", pos, len(r.data))
		return
	}
	r.pos = pos
}

func (r *Reader) Skip(n int) { r.SetPos(r.pos + n) }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.data) {
		r.err = errors.Errorf("unexpected end of payload: need %d bytes at 0x%x, have %d", n, r.pos, len(r.data)-r.pos)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *Reader) ReadU8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *Reader) ReadI8() int8 { return int8(r.ReadU8()) }

func (r *Reader) ReadU16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }

func (r *Reader) ReadU32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

func (r *Reader) ReadU64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *Reader) ReadI64() int64 { return int64(r.ReadU64()) }

func (r *Reader) ReadF32() float32 { return math.Float32frombits(r.ReadU32()) }

// PeekU32 returns the next dword without advancing the cursor. Used to
// discriminate optional trailing sections by their magic.
func (r *Reader) PeekU32() uint32 {
	if r.err != nil || r.pos+4 > len(r.data) {
		return 0
	}
	return binary.LittleEndian.Uint32(r.data[r.pos:])
}

func (r *Reader) PeekI32() int32 { return int32(r.PeekU32()) }

func (r *Reader) ReadBytes(n int) []byte {
	if n < 0 {
		r.err = errors.Errorf("negative byte count %d at 0x%x", n, r.pos)
		return nil
	}
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// ReadString reads n raw bytes as a string, decoded through the
// configured charmap. DRS strings carry their length up front and are
// not NUL-terminated.
func (r *Reader) ReadString(n int) string {
	if b := r.take(n); b != nil {
		return utils.BytesToString(b)
	}
	return ""
}

// ReadLString reads an i32 length prefix followed by that many bytes.
func (r *Reader) ReadLString() string {
	n := r.ReadI32()
	if r.err != nil {
		return ""
	}
	if n < 0 {
		r.err = errors.Errorf("negative string length %d at 0x%x", n, r.pos)
		return ""
	}
	return r.ReadString(int(n))
}

func (r *Reader) ReadVec2() mgl32.Vec2 {
	return mgl32.Vec2{r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadVec3() mgl32.Vec3 {
	return mgl32.Vec3{r.ReadF32(), r.ReadF32(), r.ReadF32()}
}

func (r *Reader) ReadVec4() mgl32.Vec4 {
	return mgl32.Vec4{r.ReadF32(), r.ReadF32(), r.ReadF32(), r.ReadF32()}
}

// ReadQuat reads x, y, z, w in file order.
func (r *Reader) ReadQuat() mgl32.Quat {
	x, y, z := r.ReadF32(), r.ReadF32(), r.ReadF32()
	w := r.ReadF32()
	return mgl32.Quat{W: w, V: mgl32.Vec3{x, y, z}}
}

// ReadMat3 reads nine floats stored row by row.
func (r *Reader) ReadMat3() mgl32.Mat3 {
	r0, r1, r2 := r.ReadVec3(), r.ReadVec3(), r.ReadVec3()
	return mgl32.Mat3FromRows(r0, r1, r2)
}

// ReadMat4 reads sixteen floats stored row by row.
func (r *Reader) ReadMat4() mgl32.Mat4 {
	r0, r1, r2, r3 := r.ReadVec4(), r.ReadVec4(), r.ReadVec4(), r.ReadVec4()
	return mgl32.Mat4FromRows(r0, r1, r2, r3)
}

// Writer accumulates a little-endian payload in memory.
type Writer struct {
	data []byte
}

func NewWriter() *Writer {
	return &Writer{data: make([]byte, 0, 256)}
}

func (w *Writer) Bytes() []byte { return w.data }
func (w *Writer) Len() int      { return len(w.data) }

func (w *Writer) WriteU8(v uint8) { w.data = append(w.data, v) }
func (w *Writer) WriteI8(v int8)  { w.WriteU8(uint8(v)) }
func (w *Writer) WriteU16(v uint16) {
	w.data = append(w.data, byte(v), byte(v>>8))
}
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }
func (w *Writer) WriteU32(v uint32) {
	w.data = append(w.data, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
func (w *Writer) WriteI32(v int32)   { w.WriteU32(uint32(v)) }
func (w *Writer) WriteU64(v uint64)  { w.WriteU32(uint32(v)); w.WriteU32(uint32(v >> 32)) }
func (w *Writer) WriteI64(v int64)   { w.WriteU64(uint64(v)) }
func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

func (w *Writer) WriteBytes(b []byte) { w.data = append(w.data, b...) }

// WriteString encodes the string back through the configured charmap.
func (w *Writer) WriteString(s string) {
	w.data = append(w.data, utils.StringToBytes(s, false)...)
}

// WriteLString writes an i32 length prefix followed by the encoded bytes.
func (w *Writer) WriteLString(s string) {
	b := utils.StringToBytes(s, false)
	w.WriteI32(int32(len(b)))
	w.WriteBytes(b)
}

func (w *Writer) WriteVec2(v mgl32.Vec2) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
}

func (w *Writer) WriteVec3(v mgl32.Vec3) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
	w.WriteF32(v[2])
}

func (w *Writer) WriteVec4(v mgl32.Vec4) {
	w.WriteF32(v[0])
	w.WriteF32(v[1])
	w.WriteF32(v[2])
	w.WriteF32(v[3])
}

// WriteQuat writes x, y, z, w in file order.
func (w *Writer) WriteQuat(q mgl32.Quat) {
	w.WriteVec3(q.V)
	w.WriteF32(q.W)
}

func (w *Writer) WriteMat3(m mgl32.Mat3) {
	w.WriteVec3(m.Row(0))
	w.WriteVec3(m.Row(1))
	w.WriteVec3(m.Row(2))
}

func (w *Writer) WriteMat4(m mgl32.Mat4) {
	w.WriteVec4(m.Row(0))
	w.WriteVec4(m.Row(1))
	w.WriteVec4(m.Row(2))
	w.WriteVec4(m.Row(3))
}
