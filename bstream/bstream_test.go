package bstream

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestScalarRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xab)
	w.WriteI16(-1234)
	w.WriteU32(0xdeadbeef)
	w.WriteI32(-981667554)
	w.WriteF32(1.5)
	w.WriteI64(-1)

	r := NewReader(w.Bytes())
	if v := r.ReadU8(); v != 0xab {
		t.Errorf("u8: got 0x%x", v)
	}
	if v := r.ReadI16(); v != -1234 {
		t.Errorf("i16: got %d", v)
	}
	if v := r.ReadU32(); v != 0xdeadbeef {
		t.Errorf("u32: got 0x%x", v)
	}
	if v := r.ReadI32(); v != -981667554 {
		t.Errorf("i32: got %d", v)
	}
	if v := r.ReadF32(); v != 1.5 {
		t.Errorf("f32: got %f", v)
	}
	if v := r.ReadI64(); v != -1 {
		t.Errorf("i64: got %d", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("remaining: got %d", r.Remaining())
	}
	if err := r.Error(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLittleEndianLayout(t *testing.T) {
	w := NewWriter()
	w.WriteU32(0x01020304)
	if !bytes.Equal(w.Bytes(), []byte{4, 3, 2, 1}) {
		t.Errorf("layout: got % x", w.Bytes())
	}
}

func TestPeekDoesNotAdvance(t *testing.T) {
	r := NewReader([]byte{1, 0, 0, 0, 2, 0, 0, 0})
	if v := r.PeekU32(); v != 1 {
		t.Errorf("peek: got %d", v)
	}
	if r.Pos() != 0 {
		t.Errorf("pos after peek: got %d", r.Pos())
	}
	if v := r.ReadU32(); v != 1 {
		t.Errorf("read after peek: got %d", v)
	}
	if v := r.PeekU32(); v != 2 {
		t.Errorf("second peek: got %d", v)
	}
}

func TestLStringRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteLString("CGeoMesh")
	w.WriteLString("")

	r := NewReader(w.Bytes())
	if s := r.ReadLString(); s != "CGeoMesh" {
		t.Errorf("lstring: got %q", s)
	}
	if s := r.ReadLString(); s != "" {
		t.Errorf("empty lstring: got %q", s)
	}
	if err := r.Error(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestShortReadLatchesError(t *testing.T) {
	r := NewReader([]byte{1, 2})
	if v := r.ReadU32(); v != 0 {
		t.Errorf("short read value: got %d", v)
	}
	if r.Error() == nil {
		t.Fatal("expected error after short read")
	}
	// every access after the first failure keeps returning zeros
	if v := r.ReadU8(); v != 0 {
		t.Errorf("read after error: got %d", v)
	}
}

func TestNegativeStringLength(t *testing.T) {
	w := NewWriter()
	w.WriteI32(-5)
	r := NewReader(w.Bytes())
	if s := r.ReadLString(); s != "" {
		t.Errorf("got %q", s)
	}
	if r.Error() == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestMatricesStoredRowMajor(t *testing.T) {
	m := mgl32.Mat3FromRows(
		mgl32.Vec3{1, 2, 3},
		mgl32.Vec3{4, 5, 6},
		mgl32.Vec3{7, 8, 9},
	)
	w := NewWriter()
	w.WriteMat3(m)

	r := NewReader(w.Bytes())
	for i, want := range []float32{1, 2, 3, 4, 5, 6, 7, 8, 9} {
		if got := r.ReadF32(); got != want {
			t.Errorf("float %d: got %f want %f", i, got, want)
		}
	}

	r = NewReader(w.Bytes())
	if got := r.ReadMat3(); got != m {
		t.Errorf("mat3 round trip: got %v", got)
	}
}

func TestQuatFileOrder(t *testing.T) {
	q := mgl32.Quat{W: 4, V: mgl32.Vec3{1, 2, 3}}
	w := NewWriter()
	w.WriteQuat(q)

	r := NewReader(w.Bytes())
	for i, want := range []float32{1, 2, 3, 4} {
		if got := r.ReadF32(); got != want {
			t.Errorf("component %d: got %f want %f", i, got, want)
		}
	}
}
