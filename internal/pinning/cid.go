package pinning

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ComputeCID reads r to EOF and returns the base32 CIDv1 (raw codec,
// sha2-256) of its contents along with the number of bytes read.
func ComputeCID(r io.Reader) (string, int64, error) {
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, fmt.Errorf("hash content: %w", err)
	}

	mh, err := multihash.Encode(h.Sum(nil), multihash.SHA2_256)
	if err != nil {
		return "", n, fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, multihash.Multihash(mh)).String(), n, nil
}

// ValidCID reports whether s is a CIDv1 of the kind ComputeCID produces.
func ValidCID(s string) bool {
	c, err := cid.Decode(s)
	if err != nil {
		return false
	}
	prefix := c.Prefix()
	return len(s) > 0 && s[0] == 'b' &&
		prefix.Version == 1 &&
		prefix.Codec == cid.Raw &&
		prefix.MhType == multihash.SHA2_256
}
