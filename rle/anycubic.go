package rle

const (
	flagSetPixels = 0x80

	// anycubicMaxRun is the longest run Photon Workshop emits in one token,
	// two short of what seven bits can hold.
	anycubicMaxRun = 0x7f - 2
)

// Anycubic is the .pws plane codec.
var Anycubic PlaneCodec = anycubic{}

type anycubic struct{}

func (anycubic) Encode(bits []bool) Stream {
	var output []byte

	emit := func(value bool, n int) {
		by := byte(n)
		if value {
			by |= flagSetPixels
		}
		output = append(output, by)
	}
	flush := func(value bool, n int) {
		for n > 0 {
			chunk := min(anycubicMaxRun, n)
			emit(value, chunk)
			n -= chunk
		}
	}

	var value bool
	var count int
	for _, b := range bits {
		if b != value {
			flush(value, count)
			value = b
			count = 1
			continue
		}
		// The overflow check runs before the increment, so a run may
		// momentarily hold one bit more than a token can carry.
		if count > anycubicMaxRun {
			emit(value, anycubicMaxRun)
			count -= anycubicMaxRun
		}
		count++
	}
	flush(value, count)

	return Stream{Data: output}
}

func (anycubic) Decode(s Stream, n int) []bool {
	output := make([]bool, 0, min(max(n, 0), 0x7f*len(s.Data)))
	for _, by := range s.Data {
		value := by&flagSetPixels != 0
		for repeat := by & 0x7f; repeat > 0; repeat-- {
			output = append(output, value)
		}
	}
	return output
}

func (anycubic) Token(b byte) Run {
	return Run{Value: b&flagSetPixels != 0, Length: int(b & 0x7f)}
}
