package pools

import (
	"sync"
	"testing"
)

func TestBytePool_Get(t *testing.T) {
	pool := NewBytePool()

	tests := []struct {
		name   string
		size   int
		minCap int
	}{
		{"frame", 100, 100},
		{"frame_exact", FrameSize, FrameSize},
		{"block", 10 << 10, 10 << 10},
		{"block_exact", BlockSize, BlockSize},
		{"bunch", 512 << 10, 512 << 10},
		{"bunch_exact", BunchSize, BunchSize},
		{"large", 3 << 20, 3 << 20},
		{"oversized", MaxPool + 1, MaxPool + 1}, // Allocated directly
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := pool.Get(tt.size)
			if len(b) != 0 {
				t.Errorf("Get(%d) length = %d, want 0", tt.size, len(b))
			}
			if cap(b) < tt.minCap {
				t.Errorf("Get(%d) capacity = %d, want >= %d", tt.size, cap(b), tt.minCap)
			}
		})
	}
}

func TestBytePool_GetSized(t *testing.T) {
	pool := NewBytePool()

	b := pool.GetSized(100)
	if len(b) != 100 {
		t.Errorf("GetSized(100) length = %d, want 100", len(b))
	}
	if cap(b) < 100 {
		t.Errorf("GetSized(100) capacity = %d, want >= 100", cap(b))
	}
}

func TestBytePool_PutNeverYieldsShortBuffer(t *testing.T) {
	pool := NewBytePool()

	// A buffer that grew past the frame class but not to a full block must
	// not be handed out for a block-sized request.
	grown := make([]byte, 0, 8<<10)
	pool.Put(grown)

	for i := 0; i < 10; i++ {
		b := pool.Get(BlockSize)
		if cap(b) < BlockSize {
			t.Fatalf("Get(%d) capacity = %d", BlockSize, cap(b))
		}
	}
}

func TestBytePool_PutAndReuse(t *testing.T) {
	pool := NewBytePool()

	for i := 0; i < 10; i++ {
		b := pool.Get(FrameSize)
		b = append(b, "test data"...)
		pool.Put(b)
	}

	b := pool.Get(FrameSize)
	if len(b) != 0 {
		t.Errorf("After Put, Get returned slice with length %d, want 0", len(b))
	}
}

func TestBytePool_OversizedNotPooled(t *testing.T) {
	pool := NewBytePool()

	large := make([]byte, MaxPool+1000)
	pool.Put(large) // Should not panic or error
}

func TestDefaultBytePool(t *testing.T) {
	b := GetBytes(64)
	if cap(b) < 64 {
		t.Errorf("GetBytes(64) capacity = %d", cap(b))
	}
	PutBytes(b)

	s := GetBytesSized(10)
	if len(s) != 10 {
		t.Errorf("GetBytesSized(10) length = %d", len(s))
	}
}

func TestUint64Pool_Get(t *testing.T) {
	pool := NewUint64Pool()

	for _, size := range []int{1, 64, 500, 1024, 16384, 20000} {
		s := pool.Get(size)
		if len(s) != 0 {
			t.Errorf("Get(%d) length = %d, want 0", size, len(s))
		}
		if cap(s) < size {
			t.Errorf("Get(%d) capacity = %d, want >= %d", size, cap(s), size)
		}
	}
}

func TestUint64Pool_PutAndReuse(t *testing.T) {
	pool := NewUint64Pool()

	s := pool.Get(100)
	s = append(s, 1, 2, 3)
	pool.Put(s)

	s = pool.Get(100)
	if len(s) != 0 {
		t.Errorf("After Put, Get returned slice with length %d, want 0", len(s))
	}
}

func TestDefaultUint64Pool(t *testing.T) {
	s := GetUint64s(32)
	if cap(s) < 32 {
		t.Errorf("GetUint64s(32) capacity = %d", cap(s))
	}
	PutUint64s(s)
}

func TestBufferBuilder(t *testing.T) {
	b := NewBufferBuilder(64)
	defer b.Release()

	b.WriteByte(0x01)
	b.WriteUint64LE(0xABCDEF0123456789)
	n, err := b.Write([]byte{0xFF, 0xFE})
	if err != nil || n != 2 {
		t.Fatalf("Write = (%d, %v)", n, err)
	}

	result := b.Bytes()

	expectedLen := 1 + 8 + 2
	if len(result) != expectedLen {
		t.Fatalf("Buffer length = %d, want %d", len(result), expectedLen)
	}

	if result[0] != 0x01 {
		t.Errorf("result[0] = %02x, want 0x01", result[0])
	}

	expected64 := []byte{0x89, 0x67, 0x45, 0x23, 0x01, 0xEF, 0xCD, 0xAB}
	for i, exp := range expected64 {
		if result[1+i] != exp {
			t.Errorf("uint64 byte %d = %02x, want %02x", i, result[1+i], exp)
		}
	}

	if result[9] != 0xFF || result[10] != 0xFE {
		t.Error("trailing bytes incorrect")
	}
}

func TestBufferBuilder_Reset(t *testing.T) {
	b := NewBufferBuilder(32)
	defer b.Release()

	b.Write([]byte("test data"))
	b.Reset()

	if b.Len() != 0 {
		t.Errorf("After Reset() Len() = %d, want 0", b.Len())
	}

	b.Write([]byte("new data"))
	if string(b.Bytes()) != "new data" {
		t.Errorf("After Reset and write, got %q, want %q", string(b.Bytes()), "new data")
	}
}

func TestBytePool_Concurrent(t *testing.T) {
	pool := NewBytePool()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := pool.Get(FrameSize)
				b = append(b, "concurrent test data"...)
				pool.Put(b)
			}
		}()
	}

	wg.Wait()
}

func BenchmarkBufferBuilder(b *testing.B) {
	payload := make([]byte, 512)
	for i := 0; i < b.N; i++ {
		bb := NewBufferBuilder(BunchSize)
		for j := 0; j < 64; j++ {
			bb.Write(payload)
		}
		bb.Release()
	}
}

func TestClassPool_NeverYieldsShortSlice(t *testing.T) {
	p := newClassPool[uint64](4, 16, 64)

	for _, c := range []int{2, 4, 15, 16, 63, 64, 65} {
		p.put(make([]uint64, 0, c))
	}

	for _, n := range []int{1, 4, 5, 16, 17, 64, 100} {
		for i := 0; i < 4; i++ {
			if s := p.get(n); cap(s) < n || len(s) != 0 {
				t.Fatalf("get(%d) = len %d cap %d", n, len(s), cap(s))
			}
		}
	}
}
