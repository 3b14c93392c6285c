// Package encoding holds the binary/textual identifier conversions and the
// opaque pagination cursors used across the chain indexing core.
package encoding

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrBadCursor is returned when a cursor does not decode to valid JSON of
// the expected arity.
var ErrBadCursor = errors.New("bad cursor")

// EncodeBytes renders raw bytes as URL-safe base64 without padding, the
// textual representation used throughout the public API.
func EncodeBytes(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBytes reverses EncodeBytes.
func DecodeBytes(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64")
	}
	return b, nil
}

// TagNameHash fingerprints a tag name with SHA-1. It is an index key, not a
// security token: collisions would corrupt queries, so callers must treat
// it as unique.
func TagNameHash(name []byte) []byte {
	sum := sha1.Sum(name)
	return sum[:]
}

// TagValueHash fingerprints a tag value with SHA-1.
func TagValueHash(value []byte) []byte {
	sum := sha1.Sum(value)
	return sum[:]
}

// WalletAddress derives a wallet's compact address from its RSA public
// modulus: SHA-256(modulus).
func WalletAddress(publicModulus []byte) []byte {
	sum := sha256.Sum256(publicModulus)
	return sum[:]
}

// EncodeTransactionCursor encodes the [height, block_transaction_index]
// pagination cursor for the transaction query engine.
func EncodeTransactionCursor(height, blockTransactionIndex int64) string {
	b, _ := json.Marshal([2]int64{height, blockTransactionIndex})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeTransactionCursor decodes a cursor produced by
// EncodeTransactionCursor. An empty cursor yields ok=false with no error:
// "no bound".
func DecodeTransactionCursor(cursor string) (height, blockTransactionIndex int64, ok bool, err error) {
	if cursor == "" {
		return 0, 0, false, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, 0, false, ErrBadCursor
	}

	var pair []int64
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return 0, 0, false, ErrBadCursor
	}

	return pair[0], pair[1], true, nil
}

// EncodeBlockCursor encodes the [height] pagination cursor for the block
// query engine.
func EncodeBlockCursor(height int64) string {
	b, _ := json.Marshal([1]int64{height})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBlockCursor decodes a cursor produced by EncodeBlockCursor.
func DecodeBlockCursor(cursor string) (height int64, ok bool, err error) {
	if cursor == "" {
		return 0, false, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, false, ErrBadCursor
	}

	var pair []int64
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 1 {
		return 0, false, ErrBadCursor
	}

	return pair[0], true, nil
}
