package transfer

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strings"
)

// ParseMetadata decodes an Upload-Metadata header: comma separated pairs of
// a key and an optional base64 value separated by a space.
func ParseMetadata(header string) (map[string]string, error) {
	meta := make(map[string]string)
	if strings.TrimSpace(header) == "" {
		return meta, nil
	}

	for pair := range strings.SplitSeq(header, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		key, encoded, _ := strings.Cut(pair, " ")
		if key == "" || strings.ContainsAny(key, " ,") {
			return nil, fmt.Errorf("%w: bad key %q", ErrInvalidMetadata, key)
		}

		value, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidMetadata, key, err)
		}
		meta[key] = string(value)
	}

	return meta, nil
}

// EncodeMetadata renders metadata as an Upload-Metadata header with keys sorted.
func EncodeMetadata(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		if meta[k] == "" {
			pairs = append(pairs, k)
			continue
		}
		pairs = append(pairs, k+" "+base64.StdEncoding.EncodeToString([]byte(meta[k])))
	}
	return strings.Join(pairs, ",")
}
