package crypto

import (
	"encoding/hex"
	"testing"
)

func TestSHA256d_KnownVector(t *testing.T) {
	// SHA256(SHA256("hello")).
	got := SHA256d([]byte("hello"))
	want := "9595c9df90075148eb06860365df33584b75bff782a510c6cd4883a419833d50"
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("SHA256d = %x, want %s", got, want)
	}
}

func TestHash160_KnownVector(t *testing.T) {
	// RIPEMD160(SHA256("")).
	got := Hash160(nil)
	want := "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb"
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("Hash160 = %x, want %s", got, want)
	}
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zero(b)
	for i, v := range b {
		if v != 0 {
			t.Errorf("b[%d] = %d, want 0", i, v)
		}
	}

	var arr [32]byte
	arr[7] = 0xff
	Zero32(&arr)
	if arr != [32]byte{} {
		t.Error("Zero32 left non-zero bytes")
	}
}
