package wire

import "testing"

func TestVarIntRoundTrip(t *testing.T) {
	t.Parallel()
	cases := []uint64{0, 1, 63, 64, 16383, 16384, 1 << 20, MaxVarInt}
	for _, v := range cases {
		b := AppendVarInt(nil, v)
		got, n, err := DecodeVarInt(b)
		if err != nil {
			t.Fatalf("DecodeVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("got %d, want %d", got, v)
		}
		if n != len(b) {
			t.Fatalf("consumed %d, want %d", n, len(b))
		}
	}
}

func TestVarIntTooLarge(t *testing.T) {
	t.Parallel()
	if _, err := EncodeVarInt(nil, MaxVarInt+1); err != ErrValueTooLarge {
		t.Fatalf("got %v, want ErrValueTooLarge", err)
	}
}

func TestDecodeVarIntShortBuffer(t *testing.T) {
	t.Parallel()
	b := AppendVarInt(nil, 1<<20)
	for i := 0; i < len(b)-1; i++ {
		if _, _, err := DecodeVarInt(b[:i]); err != ErrNeedMoreData {
			t.Fatalf("prefix %d: got %v, want ErrNeedMoreData", i, err)
		}
	}
}
