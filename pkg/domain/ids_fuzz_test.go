package domain

import (
	"strings"
	"testing"
)

// FuzzParseAddress checks that parsing never panics and that accepted
// addresses are already normalized.
func FuzzParseAddress(f *testing.F) {
	f.Add("")
	f.Add("0x0000000000000000000000000000000000000000")
	f.Add("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	f.Add("0x'; DROP TABLE certificates;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		addr, err := ParseAddress(input)
		if err != nil {
			return
		}
		if string(addr) != strings.ToLower(string(addr)) {
			t.Errorf("accepted address %q is not lowercase", addr)
		}
		again, err := ParseAddress(string(addr))
		if err != nil || again != addr {
			t.Errorf("accepted address %q failed round-trip", addr)
		}
	})
}
