package instance

import (
	"encoding/binary"
	"errors"
)

// Header is the fixed prefix of an instance file. All fields are big-endian.
//
//	SEED        u32  TinyMT32 seed of the whole file
//	BLOCKSIZE   u32  source symbols per full block
//	WORDSIZE    u32  bytes per symbol
//	REDUNDANCY  u32  repair symbols per block
//	MSGSIZE     u64  exact message length in bytes
type Header struct {
	Seed        uint32
	BlockSize   uint32
	WordSize    uint32
	Redundancy  uint32
	MessageSize uint64
}

const HeaderLen = 4 + 4 + 4 + 4 + 8

var errShortHeader = errors.New("instance: short header")

func (h *Header) MarshalBinary(b []byte) []byte {
	if len(b) < HeaderLen {
		b = make([]byte, HeaderLen)
	}
	binary.BigEndian.PutUint32(b[0:4], h.Seed)
	binary.BigEndian.PutUint32(b[4:8], h.BlockSize)
	binary.BigEndian.PutUint32(b[8:12], h.WordSize)
	binary.BigEndian.PutUint32(b[12:16], h.Redundancy)
	binary.BigEndian.PutUint64(b[16:24], h.MessageSize)
	return b[:HeaderLen]
}

func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderLen {
		return errShortHeader
	}
	h.Seed = binary.BigEndian.Uint32(b[0:4])
	h.BlockSize = binary.BigEndian.Uint32(b[4:8])
	h.WordSize = binary.BigEndian.Uint32(b[8:12])
	h.Redundancy = binary.BigEndian.Uint32(b[12:16])
	h.MessageSize = binary.BigEndian.Uint64(b[16:24])
	return nil
}

// SourceSymbols returns the number of source symbols the message spans.
func (h *Header) SourceSymbols() uint64 {
	if h.WordSize == 0 {
		return 0
	}
	n := h.MessageSize / uint64(h.WordSize)
	if h.MessageSize%uint64(h.WordSize) != 0 {
		n++
	}
	return n
}
