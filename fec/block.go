package fec

import (
	"fmt"
	"sort"
	"time"
)

// Packet is one received symbol. Index < SourceCount identifies a source
// symbol; Index >= SourceCount identifies repair symbol Index-SourceCount.
type Packet struct {
	Index int
	Data  []byte
}

// Block is one independently decodable coding block.
type Block struct {
	Seed             uint32
	SourceCount      int // nss
	RepairCount      int // nrs
	SymbolSize       int
	// CoefficientWidth is the number of source columns the coefficients were
	// generated with. Zero means SourceCount. A short trailing block uses the
	// first SourceCount columns of a wider matrix.
	CoefficientWidth int
	Packets          []Packet
}

// DecodeStats describes one decode for diagnostics.
type DecodeStats struct {
	Received   int
	Lost       int // source symbols not received
	RepairUsed int // repair symbols standing in for lost source symbols
	Elapsed    time.Duration
}

func (b *Block) width() int {
	if b.CoefficientWidth == 0 {
		return b.SourceCount
	}
	return b.CoefficientWidth
}

// IsRepair reports whether p is a repair symbol of b.
func (b *Block) IsRepair(p Packet) bool { return p.Index >= b.SourceCount }

// Validate checks the block shape before any arithmetic runs.
func (b *Block) Validate() error {
	if b.SourceCount <= 0 {
		return fmt.Errorf("%w: source count %d", ErrMalformed, b.SourceCount)
	}
	if b.RepairCount < 0 {
		return fmt.Errorf("%w: repair count %d", ErrMalformed, b.RepairCount)
	}
	if b.SymbolSize <= 0 {
		return fmt.Errorf("%w: symbol size %d", ErrMalformed, b.SymbolSize)
	}
	if b.CoefficientWidth != 0 && b.CoefficientWidth < b.SourceCount {
		return fmt.Errorf("%w: coefficient width %d below source count %d", ErrMalformed, b.CoefficientWidth, b.SourceCount)
	}
	seen := make(map[int]struct{}, len(b.Packets))
	for _, p := range b.Packets {
		if p.Index < 0 || p.Index >= b.SourceCount+b.RepairCount {
			return fmt.Errorf("%w: symbol index %d out of range [0,%d)", ErrMalformed, p.Index, b.SourceCount+b.RepairCount)
		}
		if _, dup := seen[p.Index]; dup {
			return fmt.Errorf("%w: duplicate symbol index %d", ErrMalformed, p.Index)
		}
		seen[p.Index] = struct{}{}
		if len(p.Data) != b.SymbolSize {
			return fmt.Errorf("%w: symbol %d has %d bytes, want %d", ErrMalformed, p.Index, len(p.Data), b.SymbolSize)
		}
	}
	return nil
}

// selectRows orders the received packets as equations: source packets first,
// then repair packets in index order.
func (b *Block) selectRows() (src, rep []Packet) {
	for _, p := range b.Packets {
		if b.IsRepair(p) {
			rep = append(rep, p)
		} else {
			src = append(src, p)
		}
	}
	sort.Slice(src, func(i, j int) bool { return src[i].Index < src[j].Index })
	sort.Slice(rep, func(i, j int) bool { return rep[i].Index < rep[j].Index })
	return src, rep
}

// Decode recovers the SourceCount source symbols of b. The packets of b are
// not modified. ErrSingular means too few independent symbols were received.
func Decode(b *Block) ([][]byte, error) {
	out, _, err := DecodeWithStats(b)
	return out, err
}

// DecodeWithStats is Decode that also reports what the decode used.
func DecodeWithStats(b *Block) ([][]byte, DecodeStats, error) {
	t0 := time.Now()
	stats := DecodeStats{Received: len(b.Packets)}
	if err := b.Validate(); err != nil {
		return nil, stats, err
	}
	nss := b.SourceCount
	src, rep := b.selectRows()
	stats.Lost = nss - len(src)
	stats.RepairUsed = min(len(rep), stats.Lost)
	if len(src)+len(rep) < nss {
		stats.Elapsed = time.Since(t0)
		return nil, stats, fmt.Errorf("%w: %d symbols received, %d needed", ErrSingular, len(src)+len(rep), nss)
	}

	// Fast path: every source symbol arrived.
	if stats.Lost == 0 {
		out := make([][]byte, nss)
		for _, p := range src {
			out[p.Index] = append([]byte(nil), p.Data...)
		}
		stats.Elapsed = time.Since(t0)
		return out, stats, nil
	}

	// every received repair row takes part, so a dependent repair symbol is
	// replaced by a later one
	coefs := GenerateCoefficients(b.Seed, b.width(), b.RepairCount)
	a := NewMatrix(len(src)+len(rep), nss)
	rhs := make([][]byte, len(src)+len(rep))
	row := 0
	for _, p := range src {
		a.Set(row, p.Index, 1)
		rhs[row] = append([]byte(nil), p.Data...)
		row++
	}
	for _, p := range rep {
		copy(a.Row(row), coefs.Row(p.Index-nss)[:nss])
		rhs[row] = append([]byte(nil), p.Data...)
		row++
	}
	if err := Solve(a, rhs); err != nil {
		stats.Elapsed = time.Since(t0)
		return nil, stats, err
	}
	stats.Elapsed = time.Since(t0)
	return rhs[:nss:nss], stats, nil
}
