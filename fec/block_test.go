package fec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeRepair produces the repair symbols an encoder using seed would send.
func encodeRepair(t *testing.T, seed uint32, width int, src [][]byte, nrs int) [][]byte {
	t.Helper()
	coefs := GenerateCoefficients(seed, width, nrs)
	narrowed := NewMatrix(nrs, len(src))
	for i := 0; i < nrs; i++ {
		copy(narrowed.Row(i), coefs.Row(i)[:len(src)])
	}
	rep, err := narrowed.MulSymbols(src)
	require.NoError(t, err)
	return rep
}

func scenarioSource() [][]byte {
	return [][]byte{
		{0x01, 0x02, 0x03, 0x04},
		{0x10, 0x20, 0x30, 0x40},
		{0xde, 0xad, 0xbe, 0xef},
	}
}

func TestDecodeAllSourceReceived(t *testing.T) {
	src := scenarioSource()
	b := &Block{Seed: 42, SourceCount: 3, RepairCount: 2, SymbolSize: 4}
	for i, s := range src {
		b.Packets = append(b.Packets, Packet{Index: i, Data: s})
	}
	out, stats, err := DecodeWithStats(b)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Equal(t, 0, stats.RepairUsed)
	assert.Equal(t, 0, stats.Lost)
}

func TestDecodeRecoversLostSource(t *testing.T) {
	src := scenarioSource()
	rep := encodeRepair(t, 42, 3, src, 2)
	for lost := 0; lost < 3; lost++ {
		b := &Block{Seed: 42, SourceCount: 3, RepairCount: 2, SymbolSize: 4}
		for i, s := range src {
			if i != lost {
				b.Packets = append(b.Packets, Packet{Index: i, Data: s})
			}
		}
		b.Packets = append(b.Packets, Packet{Index: 3, Data: rep[0]}, Packet{Index: 4, Data: rep[1]})

		out, stats, err := DecodeWithStats(b)
		require.NoError(t, err, "lost %d", lost)
		assert.Equal(t, src, out, "lost %d", lost)
		assert.Equal(t, 1, stats.RepairUsed)
		assert.Equal(t, 1, stats.Lost)
	}
}

func TestDecodeTooFewSymbols(t *testing.T) {
	src := scenarioSource()
	rep := encodeRepair(t, 42, 3, src, 2)
	b := &Block{Seed: 42, SourceCount: 3, RepairCount: 2, SymbolSize: 4, Packets: []Packet{
		{Index: 0, Data: src[0]},
		{Index: 4, Data: rep[1]},
	}}
	out, err := Decode(b)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrSingular)
}

func TestDecodeOnlyRepairSymbols(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	src := randomSymbols(rng, 10, 64)
	rep := encodeRepair(t, 1234, 10, src, 12)
	b := &Block{Seed: 1234, SourceCount: 10, RepairCount: 12, SymbolSize: 64}
	// arrival order must not matter
	for _, j := range rng.Perm(12) {
		b.Packets = append(b.Packets, Packet{Index: 10 + j, Data: rep[j]})
	}
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestDecodeSkipsZeroRepairRow(t *testing.T) {
	// find a seed whose first repair row is all zero and whose second is not
	var seed uint32
	found := false
	for s := uint32(0); s < 1<<16; s++ {
		c := GenerateCoefficients(s, 1, 2)
		if c.At(0, 0) == 0 && c.At(1, 0) != 0 {
			seed, found = s, true
			break
		}
	}
	require.True(t, found)

	src := [][]byte{{0x5a, 0xa5, 0x3c}}
	rep := encodeRepair(t, seed, 1, src, 2)
	assert.Equal(t, []byte{0, 0, 0}, rep[0])
	b := &Block{Seed: seed, SourceCount: 1, RepairCount: 2, SymbolSize: 3, Packets: []Packet{
		{Index: 1, Data: rep[0]},
		{Index: 2, Data: rep[1]},
	}}
	out, stats, err := DecodeWithStats(b)
	require.NoError(t, err, "seed %d", seed)
	assert.Equal(t, src, out)
	assert.Equal(t, 1, stats.RepairUsed)

	// the zero row alone cannot determine the symbol
	b.Packets = b.Packets[:1]
	_, err = Decode(b)
	assert.ErrorIs(t, err, ErrSingular)
}

func TestDecodeDoesNotMutatePackets(t *testing.T) {
	src := scenarioSource()
	rep := encodeRepair(t, 42, 3, src, 2)
	repCopy := append([]byte(nil), rep[0]...)
	b := &Block{Seed: 42, SourceCount: 3, RepairCount: 2, SymbolSize: 4, Packets: []Packet{
		{Index: 3, Data: rep[0]},
		{Index: 1, Data: src[1]},
		{Index: 2, Data: src[2]},
	}}
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, src, out)
	assert.Equal(t, repCopy, rep[0])
	out[1][0] ^= 0xff
	assert.Equal(t, byte(0x10), src[1][0])
}

func TestDecodeShortBlockUsesWideCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	src := randomSymbols(rng, 3, 8)
	rep := encodeRepair(t, 77, 5, src, 3)
	b := &Block{Seed: 77, SourceCount: 3, RepairCount: 3, SymbolSize: 8, CoefficientWidth: 5, Packets: []Packet{
		{Index: 0, Data: src[0]},
		{Index: 3, Data: rep[0]},
		{Index: 5, Data: rep[2]},
	}}
	out, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestBlockValidate(t *testing.T) {
	ok := func() *Block {
		return &Block{Seed: 1, SourceCount: 2, RepairCount: 1, SymbolSize: 2, Packets: []Packet{
			{Index: 0, Data: []byte{1, 2}},
			{Index: 2, Data: []byte{3, 4}},
		}}
	}
	require.NoError(t, ok().Validate())

	cases := map[string]func(b *Block){
		"zero source":     func(b *Block) { b.SourceCount = 0 },
		"negative repair": func(b *Block) { b.RepairCount = -1 },
		"zero symbol":     func(b *Block) { b.SymbolSize = 0 },
		"narrow width":    func(b *Block) { b.CoefficientWidth = 1 },
		"index range":     func(b *Block) { b.Packets[1].Index = 3 },
		"negative index":  func(b *Block) { b.Packets[0].Index = -1 },
		"duplicate":       func(b *Block) { b.Packets[1].Index = 0 },
		"short symbol":    func(b *Block) { b.Packets[0].Data = []byte{1} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := ok()
			mutate(b)
			assert.ErrorIs(t, b.Validate(), ErrMalformed)
			_, err := Decode(b)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
