package rle

import "math/bits"

// chituMaxRun is the longest run one ChiTu token holds (stored as 0x7f).
const chituMaxRun = 128

// ChiTu is the .photons plane codec.
//
// Encode reproduces ChiTuBox output byte-for-byte, including two quirks
// at the end of the plane: the final run is stored one bit longer than
// it is, and a plane ending exactly on a full unset 128-run has that
// last token rewritten from 0xfe to 0x01. Both are harmless to Decode,
// which pre-fills unset bits, stops at the plane size and never emits
// more set bits than Stream.Ones.
var ChiTu PlaneCodec = chitu{}

type chitu struct{}

func chituByte(value bool, count int) byte {
	by := byte(count - 1)
	if value {
		by |= flagSetPixels
	}
	return bits.Reverse8(by)
}

func (chitu) Encode(plane []bool) Stream {
	var data []byte
	var ones int
	var last bool
	var count int
	for _, b := range plane {
		if b {
			ones++
		}
		if b != last {
			if count > 0 {
				data = append(data, chituByte(last, count))
			}
			last = b
			count = 1
			continue
		}
		count++
		if count == chituMaxRun {
			data = append(data, chituByte(last, count))
			count = 0
		}
	}

	switch {
	case count > 0:
		data = append(data, chituByte(last, count+1))
	case len(data) > 0 && data[len(data)-1] == 0xfe:
		data[len(data)-1] = 0x01
	}

	return Stream{Data: data, Ones: ones}
}

func (c chitu) Decode(s Stream, n int) []bool {
	output := make([]bool, max(n, 0))
	remaining := max(s.Ones, 0)
	var index int
	for _, by := range s.Data {
		if index >= len(output) {
			break
		}
		r := c.Token(by)
		repeat := r.Length
		if r.Value {
			repeat = min(repeat, remaining)
			remaining -= repeat
		}
		for ; repeat > 0 && index < len(output); repeat-- {
			output[index] = r.Value
			index++
		}
	}
	return output
}

func (chitu) Token(b byte) Run {
	b = bits.Reverse8(b)
	return Run{Value: b&flagSetPixels != 0, Length: int(b&0x7f) + 1}
}
