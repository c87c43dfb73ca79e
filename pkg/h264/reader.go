package h264

import "errors"

var errBitstreamShort = errors.New("h264: bitstream too short")

type bitReader struct {
	data    []byte
	bytePos int
	bitPos  int
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

func (r *bitReader) readBit() (uint32, error) {
	if r.bytePos >= len(r.data) {
		return 0, errBitstreamShort
	}
	bit := uint32(r.data[r.bytePos]>>(7-r.bitPos)) & 1
	r.bitPos++
	if r.bitPos == 8 {
		r.bitPos = 0
		r.bytePos++
	}
	return bit, nil
}

func (r *bitReader) readBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | bit
	}
	return v, nil
}

func (r *bitReader) readFlag() (bool, error) {
	bit, err := r.readBit()
	return bit == 1, err
}

// readUE reads an unsigned Exp-Golomb code.
func (r *bitReader) readUE() (uint32, error) {
	leadingZeros := 0
	for {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if bit == 1 {
			break
		}
		leadingZeros++
		if leadingZeros > 31 {
			return 0, errors.New("h264: malformed Exp-Golomb code")
		}
	}
	rest, err := r.readBits(leadingZeros)
	if err != nil {
		return 0, err
	}
	return 1<<leadingZeros - 1 + rest, nil
}

// readSE reads a signed Exp-Golomb code.
func (r *bitReader) readSE() (int32, error) {
	code, err := r.readUE()
	if err != nil {
		return 0, err
	}
	if code%2 == 0 {
		return -int32(code / 2), nil
	}
	return int32(code+1) / 2, nil
}
