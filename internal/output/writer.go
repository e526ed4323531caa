package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

// RecordHeader precedes every decoded message in the output stream.
// Layout:
//
//	NAMELEN  u32  length of the instance file name
//	MSGSIZE  u64  length of the decoded message
//
// followed by the name bytes and the message bytes. Integers are big-endian.
type RecordHeader struct {
	NameLen     uint32
	MessageSize uint64
}

const RecordHeaderLen = 4 + 8

func (h *RecordHeader) MarshalBinary() []byte {
	b := make([]byte, RecordHeaderLen)
	binary.BigEndian.PutUint32(b[0:4], h.NameLen)
	binary.BigEndian.PutUint64(b[4:12], h.MessageSize)
	return b
}

func (h *RecordHeader) UnmarshalBinary(b []byte) error {
	if len(b) < RecordHeaderLen {
		return errors.New("output: short record header")
	}
	h.NameLen = binary.BigEndian.Uint32(b[0:4])
	h.MessageSize = binary.BigEndian.Uint64(b[4:12])
	return nil
}

// Writer serializes decoded messages. It is not safe for concurrent use; the
// caller owns it and writes records in instance order.
type Writer struct {
	bw  *bufio.Writer
	zw  *zstd.Encoder
	err error
}

// NewWriter returns a Writer on w. With compress set the whole stream is
// wrapped in a single zstd frame.
func NewWriter(w io.Writer, compress bool) (*Writer, error) {
	out := &Writer{}
	if compress {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("output: zstd writer: %w", err)
		}
		out.zw = zw
		w = zw
	}
	out.bw = bufio.NewWriter(w)
	return out, nil
}

// WriteRecord appends one message. After the first error every call fails.
func (w *Writer) WriteRecord(name string, message []byte) error {
	if w.err != nil {
		return w.err
	}
	if uint64(len(name)) > math.MaxUint32 {
		return fmt.Errorf("output: name of %d bytes is too long", len(name))
	}
	h := RecordHeader{NameLen: uint32(len(name)), MessageSize: uint64(len(message))}
	if _, w.err = w.bw.Write(h.MarshalBinary()); w.err != nil {
		return w.err
	}
	if _, w.err = w.bw.WriteString(name); w.err != nil {
		return w.err
	}
	_, w.err = w.bw.Write(message)
	return w.err
}

// Close flushes buffered data and ends the zstd frame. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.err != nil {
		return w.err
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if w.zw != nil {
		return w.zw.Close()
	}
	return nil
}

// Record is one entry read back from an output stream.
type Record struct {
	Name    string
	Message []byte
}

// ReadRecords parses a whole uncompressed output stream.
func ReadRecords(r io.Reader) ([]Record, error) {
	var recs []Record
	br := bufio.NewReader(r)
	for {
		var hb [RecordHeaderLen]byte
		if _, err := io.ReadFull(br, hb[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return recs, nil
			}
			return nil, fmt.Errorf("output: record header: %w", err)
		}
		var h RecordHeader
		if err := h.UnmarshalBinary(hb[:]); err != nil {
			return nil, err
		}
		name := make([]byte, h.NameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, fmt.Errorf("output: record name: %w", err)
		}
		msg := make([]byte, h.MessageSize)
		if _, err := io.ReadFull(br, msg); err != nil {
			return nil, fmt.Errorf("output: record message: %w", err)
		}
		recs = append(recs, Record{Name: string(name), Message: msg})
	}
}
