package pinning_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/JaimeStill/upload-lab/internal/pinning"
)

func TestComputeCID_EmptyVector(t *testing.T) {
	cid, n, err := pinning.ComputeCID(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("ComputeCID() failed: %v", err)
	}

	const want = "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku"
	if cid != want {
		t.Errorf("ComputeCID() = %q, want %q", cid, want)
	}
	if n != 0 {
		t.Errorf("bytes = %d, want 0", n)
	}
}

func TestComputeCID_Deterministic(t *testing.T) {
	a, _, _ := pinning.ComputeCID(strings.NewReader("same bytes"))
	b, _, _ := pinning.ComputeCID(strings.NewReader("same bytes"))
	c, _, _ := pinning.ComputeCID(strings.NewReader("other bytes"))

	if a != b {
		t.Errorf("identical content produced %q and %q", a, b)
	}
	if a == c {
		t.Error("different content produced the same identifier")
	}
	if !strings.HasPrefix(a, "bafkrei") {
		t.Errorf("CID %q missing raw/sha2-256 prefix", a)
	}
}

func TestValidCID(t *testing.T) {
	cid, _, _ := pinning.ComputeCID(strings.NewReader("content"))

	tests := []struct {
		input string
		want  bool
	}{
		{cid, true},
		{"", false},
		{"Qmabc", false},
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", false},
		{"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", false},
		{"bafkrei", false},
		{strings.TrimSuffix(cid, cid[len(cid)-2:]), false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := pinning.ValidCID(tt.input); got != tt.want {
				t.Errorf("ValidCID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
