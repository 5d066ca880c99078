package domain

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// SID is a binary Windows security identifier as it appears on the
// wire: revision byte, sub-authority count byte, a 6-byte big-endian
// identifier authority, then count little-endian 32-bit sub-authorities.
type SID []byte

const sidHeaderLen = 8

// String renders the SID in the usual S-R-I-S-S... form. An SID too
// short to parse renders as an empty string.
func (s SID) String() string {
	if len(s) < sidHeaderLen {
		return ""
	}
	revision := s[0]
	count := int(s[1])
	if len(s) < sidHeaderLen+4*count {
		return ""
	}

	var authority uint64
	for _, b := range s[2:8] {
		authority = authority<<8 | uint64(b)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "S-%d-%d", revision, authority)
	for i := 0; i < count; i++ {
		sub := binary.LittleEndian.Uint32(s[sidHeaderLen+4*i:])
		fmt.Fprintf(&sb, "-%d", sub)
	}
	return sb.String()
}
