// Package rle implements the run-length codecs used for the bit-planes
// of resin printer slice files.
//
// Two incompatible conventions exist. Anycubic (.pws) files store one
// byte per run with the value in the high bit and the literal length in
// the low seven bits. ChiTu (.photons) files store the length minus one,
// bit-reverse every byte, and carry a separate count of set bits that
// bounds decoding.
package rle

// Stream is a compressed bit-plane.
type Stream struct {
	Data []byte
	// Ones is the number of set bits in the plane. Only ChiTu streams
	// carry it; it is zero for Anycubic streams.
	Ones int
}

// PlaneCodec is a run-length codec for one binary plane.
type PlaneCodec interface {
	// Encode compresses a plane.
	Encode(bits []bool) Stream
	// Decode expands a stream. n is the expected plane size in bits;
	// codecs whose streams are self-delimiting treat it only as a
	// capacity hint and callers must check the returned length.
	Decode(s Stream, n int) []bool
	// Token splits one stored byte into its run.
	Token(b byte) Run
}

// Run is a single run-length token.
type Run struct {
	Value  bool
	Length int
}

// Tokens returns the runs of s as stored, before any budget clamping.
func Tokens(c PlaneCodec, s Stream) []Run {
	runs := make([]Run, 0, len(s.Data))
	for _, b := range s.Data {
		runs = append(runs, c.Token(b))
	}
	return runs
}

// CountOnes returns the number of set bits in bits.
func CountOnes(bits []bool) int {
	var n int
	for _, b := range bits {
		if b {
			n++
		}
	}
	return n
}
