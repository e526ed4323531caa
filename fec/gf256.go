package fec

// GF(256) arithmetic using log/antilog tables with primitive polynomial 0x11d.
// The tables are built once at init and are read-only afterwards, so every
// function in this file is safe for concurrent use.

var (
	gfExp [512]byte
	gfLog [256]byte
	gfInv [256]byte
	// gfMulTable[a][b] = a*b, used by the vector helpers to avoid the
	// zero checks of the log/exp path in the inner loops.
	gfMulTable [256][256]byte
)

func init() {
	gf256Init()
}

func gf256Init() {
	// generator = 0x02, primitive polynomial = 0x11d
	x := 1
	for i := 0; i < 255; i++ {
		gfExp[i] = byte(x)
		gfLog[byte(x)] = byte(i)
		x <<= 1
		if (x & 0x100) != 0 { // carry out from bit 8
			x ^= 0x11d
		}
	}
	for i := 255; i < 512; i++ {
		gfExp[i] = gfExp[i-255]
	}
	for a := 1; a < 256; a++ {
		gfInv[a] = gfExp[255-int(gfLog[a])]
		for b := 1; b < 256; b++ {
			gfMulTable[a][b] = gfExp[int(gfLog[a])+int(gfLog[b])]
		}
	}
}

// Add returns x+y in GF(256), which is x XOR y. Subtraction is the same operation.
func Add(x, y byte) byte { return x ^ y }

// Mul returns x*c in GF(256).
func Mul(x, c byte) byte {
	if x == 0 || c == 0 {
		return 0
	}
	return gfExp[int(gfLog[x])+int(gfLog[c])]
}

// Div returns x/c in GF(256). It panics if c is zero.
func Div(x, c byte) byte {
	if c == 0 {
		panic("fec: division by zero in GF(256)")
	}
	if x == 0 {
		return 0
	}
	return gfExp[int(gfLog[x])+255-int(gfLog[c])]
}

// Inv returns the multiplicative inverse of c. It panics if c is zero.
func Inv(c byte) byte {
	if c == 0 {
		panic("fec: inverse of zero in GF(256)")
	}
	return gfInv[c]
}

func checkLen(a, b []byte) {
	if len(a) != len(b) {
		panic("fec: vector length mismatch")
	}
}

// AddVector computes v1 += v2.
func AddVector(v1, v2 []byte) {
	checkLen(v1, v2)
	for i := range v1 {
		v1[i] ^= v2[i]
	}
}

// AddScaledVector computes v1 += c*v2 without allocating.
func AddScaledVector(v1, v2 []byte, c byte) {
	checkLen(v1, v2)
	switch c {
	case 0:
		return
	case 1:
		AddVector(v1, v2)
		return
	}
	mt := &gfMulTable[c]
	for i := range v1 {
		v1[i] ^= mt[v2[i]]
	}
}

// ScaleVector computes v = c*v.
func ScaleVector(v []byte, c byte) {
	if c == 1 {
		return
	}
	mt := &gfMulTable[c]
	for i := range v {
		v[i] = mt[v[i]]
	}
}

// DivideVector computes v = v/c. It panics if c is zero.
func DivideVector(v []byte, c byte) {
	ScaleVector(v, Inv(c))
}
