package fec

// TinyMT32 parameters shared with the encoder. Changing any of them changes
// every generated coefficient.
const (
	tinyMT32Mat1 uint32 = 0x8f7011ee
	tinyMT32Mat2 uint32 = 0xfc78ff1f
	tinyMT32Tmat uint32 = 0x3793fdff

	tinyMT32Sh0  = 1
	tinyMT32Sh1  = 10
	tinyMT32Sh8  = 8
	tinyMT32Mask = uint32(0x7fffffff)

	tinyMT32MinLoop = 8
	tinyMT32PreLoop = 8
)

// TinyMT32 is the 127-bit state Tiny Mersenne Twister. It is a plain value:
// each coefficient generation owns its own copy.
type TinyMT32 struct {
	status [4]uint32
	mat1   uint32
	mat2   uint32
	tmat   uint32
}

// NewTinyMT32 returns a generator seeded with seed.
func NewTinyMT32(seed uint32) TinyMT32 {
	t := TinyMT32{mat1: tinyMT32Mat1, mat2: tinyMT32Mat2, tmat: tinyMT32Tmat}
	t.status[0] = seed
	t.status[1] = t.mat1
	t.status[2] = t.mat2
	t.status[3] = t.tmat
	for i := uint32(1); i < tinyMT32MinLoop; i++ {
		prev := t.status[(i-1)&3]
		t.status[i&3] ^= i + 1812433253*(prev^(prev>>30))
	}
	t.certifyPeriod()
	for i := 0; i < tinyMT32PreLoop; i++ {
		t.nextState()
	}
	return t
}

// certifyPeriod avoids the all-zero state, which has period 1.
func (t *TinyMT32) certifyPeriod() {
	if t.status[0]&tinyMT32Mask == 0 && t.status[1] == 0 && t.status[2] == 0 && t.status[3] == 0 {
		t.status = [4]uint32{'T', 'I', 'N', 'Y'}
	}
}

func (t *TinyMT32) nextState() {
	y := t.status[3]
	x := (t.status[0] & tinyMT32Mask) ^ t.status[1] ^ t.status[2]
	x ^= x << tinyMT32Sh0
	y ^= (y >> tinyMT32Sh0) ^ x
	t.status[0] = t.status[1]
	t.status[1] = t.status[2]
	t.status[2] = x ^ (y << tinyMT32Sh1)
	t.status[3] = y
	if y&1 == 1 {
		t.status[1] ^= t.mat1
		t.status[2] ^= t.mat2
	}
}

func (t *TinyMT32) temper() uint32 {
	t0 := t.status[3]
	t1 := t.status[0] + (t.status[2] >> tinyMT32Sh8)
	t0 ^= t1
	if t1&1 == 1 {
		t0 ^= t.tmat
	}
	return t0
}

// Uint32 returns the next pseudo-random value.
func (t *TinyMT32) Uint32() uint32 {
	t.nextState()
	return t.temper()
}
