package h264

// BitstreamWriter accumulates an RBSP bit by bit, most significant bit first.
type BitstreamWriter struct {
	data   []byte
	bitPos int
}

func NewBitstreamWriter(capacity int) *BitstreamWriter {
	return &BitstreamWriter{data: make([]byte, 0, capacity)}
}

// WriteBits appends the numBits low bits of value.
func (w *BitstreamWriter) WriteBits(value uint32, numBits int) {
	for numBits > 0 {
		if w.bitPos == 0 {
			w.data = append(w.data, 0)
		}

		n := 8 - w.bitPos
		if n > numBits {
			n = numBits
		}

		bits := value >> (numBits - n) & (1<<n - 1)
		w.data[len(w.data)-1] |= byte(bits << (8 - w.bitPos - n))

		w.bitPos = (w.bitPos + n) % 8
		numBits -= n
	}
}

func (w *BitstreamWriter) WriteBit(value uint32) {
	w.WriteBits(value&1, 1)
}

func (w *BitstreamWriter) WriteFlag(value bool) {
	if value {
		w.WriteBit(1)
	} else {
		w.WriteBit(0)
	}
}

// WriteUE appends an unsigned Exp-Golomb code.
func (w *BitstreamWriter) WriteUE(value uint32) {
	value++
	leadingZeros := 0
	for v := value; v > 1; v >>= 1 {
		leadingZeros++
	}
	for i := 0; i < leadingZeros; i++ {
		w.WriteBit(0)
	}
	w.WriteBits(value, leadingZeros+1)
}

// WriteSE appends a signed Exp-Golomb code.
func (w *BitstreamWriter) WriteSE(value int32) {
	var code uint32
	if value <= 0 {
		code = uint32(-value) * 2
	} else {
		code = uint32(value)*2 - 1
	}
	w.WriteUE(code)
}

// WriteTrailingBits appends the RBSP stop bit and zero-pads to a byte
// boundary. The stop bit is written even when already aligned.
func (w *BitstreamWriter) WriteTrailingBits() {
	w.WriteBit(1)
	for w.bitPos != 0 {
		w.WriteBit(0)
	}
}

// Bytes returns the accumulated RBSP.
func (w *BitstreamWriter) Bytes() []byte {
	return w.data
}
