package luck

import (
	"fmt"
	"testing"
)

func TestLuckIsDeterministic(t *testing.T) {
	first := Luck("5,5")
	for i := 0; i < 10; i++ {
		if got := Luck("5,5"); got != first {
			t.Fatalf("expected %v on call %d, got %v", first, i, got)
		}
	}
}

func TestLuckKnownValues(t *testing.T) {
	cases := []struct {
		key    string
		digest uint32
		want   float64
	}{
		{key: "", digest: 0x00000000, want: 0},
		{key: "5,5", digest: 0xbf62d2e3, want: 0.9904067246243358},
		{key: "3,-7", digest: 0xc1a8089b, want: 0.025880957953631878},
		{key: "0,0", digest: 0x4cdf9efd, want: 0.20114874560385942},
		{key: "3,-7,coinCount", digest: 0x1ba8ca34, want: 0.4321771152317524},
	}
	for _, tc := range cases {
		if got := Digest(tc.key); got != tc.digest {
			t.Fatalf("digest(%q): expected %#x, got %#x", tc.key, tc.digest, got)
		}
		if got := Luck(tc.key); got != tc.want {
			t.Fatalf("luck(%q): expected %v, got %v", tc.key, tc.want, got)
		}
	}
}

func TestLuckRange(t *testing.T) {
	for i := -50; i < 50; i++ {
		for j := -50; j < 50; j++ {
			v := Luck(fmt.Sprintf("%d,%d", i, j))
			if v < 0 || v >= 1 {
				t.Fatalf("expected value in [0,1), got %v", v)
			}
		}
	}
}
