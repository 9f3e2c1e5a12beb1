package git

import (
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"
)

const (
	commitIDLen = 20
	changeIDLen = 16
)

// CommitID is the SHA-1 of a git commit object.
type CommitID [commitIDLen]byte

func ParseCommitID(s string) (CommitID, error) {
	var id CommitID
	if len(s) != 2*commitIDLen {
		return id, fmt.Errorf("invalid commit id %q", s)
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("invalid commit id %q: %w", s, err)
	}
	return id, nil
}

func (id CommitID) Hex() string    { return hex.EncodeToString(id[:]) }
func (id CommitID) String() string { return id.Hex() }

func (id CommitID) Short() string { return id.Hex()[:12] }

// ChangeID identifies a logical change. For commits without a recorded change
// id it is derived from the commit id the same way jj's git backend does it.
type ChangeID [changeIDLen]byte

// ChangeIDFromCommit takes bytes 4..20 of the commit id in reverse order and
// reverses the bits of each byte.
func ChangeIDFromCommit(id CommitID) ChangeID {
	var c ChangeID
	for i := range changeIDLen {
		c[i] = bits.Reverse8(id[commitIDLen-1-i])
	}
	return c
}

// String renders the id in reverse hex, using z..k for 0..f.
func (c ChangeID) String() string { return reverseHex(c[:]) }

func (c ChangeID) Short() string { return c.String()[:12] }

func reverseHex(b []byte) string {
	var sb strings.Builder
	sb.Grow(2 * len(b))
	for _, v := range b {
		sb.WriteByte('z' - v>>4)
		sb.WriteByte('z' - v&0x0f)
	}
	return sb.String()
}

func isHexPrefix(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f') {
			return false
		}
	}
	return true
}

func isReverseHexPrefix(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 'k' || c > 'z' {
			return false
		}
	}
	return true
}
