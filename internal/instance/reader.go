package instance

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/observe-l/rlcdecode/fec"
)

// Limits on header fields, to refuse absurd allocations from corrupt files.
const (
	MaxWordSize  = 1 << 24
	MaxBlockSize = 1 << 16
)

// ErrInvalid wraps every structural problem found in an instance file.
var ErrInvalid = errors.New("instance: invalid file")

// Instance is one parsed instance file, ready to be decoded block by block.
type Instance struct {
	Name   string
	Header Header
	Blocks []*fec.Block
}

// Discover lists the regular files of dir, skipping hidden entries, sorted by
// name so that the output order does not depend on the file system.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Read opens and parses the instance at path. The instance is named after
// the file's base name.
func Read(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(filepath.Base(path), f)
}

// Parse reads an instance from r. A source symbol whose bytes are all zero was
// erased by the channel and is left out of its block; repair symbols are
// always kept.
func Parse(name string, r io.Reader) (*Instance, error) {
	br := bufio.NewReader(r)
	var hb [HeaderLen]byte
	if _, err := io.ReadFull(br, hb[:]); err != nil {
		return nil, fmt.Errorf("%w: %s: header: %v", ErrInvalid, name, err)
	}
	inst := &Instance{Name: name}
	h := &inst.Header
	if err := h.UnmarshalBinary(hb[:]); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}
	if err := h.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, name, err)
	}

	remaining := h.SourceSymbols()
	ws := int(h.WordSize)
	zero := make([]byte, ws)
	for blockID := 0; remaining > 0; blockID++ {
		nss := uint64(h.BlockSize)
		if remaining < nss {
			nss = remaining
		}
		remaining -= nss
		b := &fec.Block{
			Seed:             h.Seed,
			SourceCount:      int(nss),
			RepairCount:      int(h.Redundancy),
			SymbolSize:       ws,
			CoefficientWidth: int(h.BlockSize),
			Packets:          make([]fec.Packet, 0, int(nss)+int(h.Redundancy)),
		}
		for i := 0; i < b.SourceCount+b.RepairCount; i++ {
			sym := make([]byte, ws)
			if _, err := io.ReadFull(br, sym); err != nil {
				return nil, fmt.Errorf("%w: %s: block %d symbol %d: %v", ErrInvalid, name, blockID, i, err)
			}
			if i < b.SourceCount && bytes.Equal(sym, zero) {
				continue
			}
			b.Packets = append(b.Packets, fec.Packet{Index: i, Data: sym})
		}
		inst.Blocks = append(inst.Blocks, b)
	}
	return inst, nil
}

func (h *Header) validate() error {
	switch {
	case h.BlockSize == 0 || h.BlockSize > MaxBlockSize:
		return fmt.Errorf("block size %d out of range", h.BlockSize)
	case h.WordSize == 0 || h.WordSize > MaxWordSize:
		return fmt.Errorf("word size %d out of range", h.WordSize)
	case h.Redundancy > MaxBlockSize:
		return fmt.Errorf("redundancy %d out of range", h.Redundancy)
	}
	return nil
}

// Assemble concatenates the decoded source symbols of every block, in block
// order, and cuts the padding of the last symbol.
func (inst *Instance) Assemble(decoded [][][]byte) ([]byte, error) {
	if len(decoded) != len(inst.Blocks) {
		return nil, fmt.Errorf("instance %s: %d decoded blocks, want %d", inst.Name, len(decoded), len(inst.Blocks))
	}
	msg := make([]byte, 0, inst.Header.SourceSymbols()*uint64(inst.Header.WordSize))
	for i, syms := range decoded {
		if len(syms) != inst.Blocks[i].SourceCount {
			return nil, fmt.Errorf("instance %s: block %d has %d symbols, want %d", inst.Name, i, len(syms), inst.Blocks[i].SourceCount)
		}
		for _, s := range syms {
			msg = append(msg, s...)
		}
	}
	if uint64(len(msg)) < inst.Header.MessageSize {
		return nil, fmt.Errorf("instance %s: %d bytes decoded, message is %d", inst.Name, len(msg), inst.Header.MessageSize)
	}
	return msg[:inst.Header.MessageSize], nil
}
