package fec

// GenerateCoefficients regenerates the nrs x nss coefficient matrix the encoder
// used for seed. Draws are consumed row-major and truncated to their low byte.
func GenerateCoefficients(seed uint32, nss, nrs int) Matrix {
	m := NewMatrix(nrs, nss)
	prng := NewTinyMT32(seed)
	for i := range m.data {
		m.data[i] = byte(prng.Uint32())
	}
	return m
}
