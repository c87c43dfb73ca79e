// Package h264 provides minimal H.264 Annex B elementary stream handling:
// NAL unit framing, splitting, and enough SPS parsing to recover the coded
// resolution. It is not a decoder; it exists so callers can validate and
// inspect bitstreams produced by hardware encoders.
package h264

import "bytes"

// NALType identifies a NAL unit type (lower 5 bits of the NAL header).
type NALType uint8

// NAL unit types used by this package.
const (
	NALTypeNonIDRSlice NALType = 1
	NALTypeIDRSlice    NALType = 5
	NALTypeSEI         NALType = 6
	NALTypeSPS         NALType = 7
	NALTypePPS         NALType = 8
	NALTypeAUD         NALType = 9
	NALTypeEndSeq      NALType = 10
	NALTypeEndStream   NALType = 11
	NALTypeFiller      NALType = 12
)

func (t NALType) String() string {
	switch t {
	case NALTypeNonIDRSlice:
		return "slice"
	case NALTypeIDRSlice:
		return "IDR slice"
	case NALTypeSEI:
		return "SEI"
	case NALTypeSPS:
		return "SPS"
	case NALTypePPS:
		return "PPS"
	case NALTypeAUD:
		return "AUD"
	case NALTypeEndSeq:
		return "end of sequence"
	case NALTypeEndStream:
		return "end of stream"
	case NALTypeFiller:
		return "filler"
	}
	return "unknown"
}

// NALUnit is a single NAL unit without its start code. Data includes the
// one-byte NAL header.
type NALUnit struct {
	Type NALType
	Data []byte
}

// RefIDC returns the nal_ref_idc field of the NAL header.
func (n NALUnit) RefIDC() uint8 {
	if len(n.Data) == 0 {
		return 0
	}
	return n.Data[0] >> 5 & 0x3
}

var (
	startCode4 = []byte{0x00, 0x00, 0x00, 0x01}
	startCode3 = []byte{0x00, 0x00, 0x01}
)

// SplitNALUnits splits an Annex B stream on 3- and 4-byte start codes.
// Bytes before the first start code are ignored.
func SplitNALUnits(stream []byte) []NALUnit {
	var units []NALUnit
	for {
		i := bytes.Index(stream, startCode3)
		if i < 0 {
			break
		}
		stream = stream[i+len(startCode3):]
		end := bytes.Index(stream, startCode3)
		var payload []byte
		if end < 0 {
			payload = stream
		} else {
			// A 4-byte start code leaves its leading zero behind.
			if end > 0 && stream[end-1] == 0x00 {
				end--
			}
			payload = stream[:end]
		}
		if len(payload) > 0 {
			units = append(units, NALUnit{
				Type: NALType(payload[0] & 0x1f),
				Data: payload,
			})
		}
		if end < 0 {
			break
		}
		stream = stream[len(payload):]
	}
	return units
}

// WriteNALUnit frames an RBSP as an Annex B NAL unit: 4-byte start code,
// NAL header, then the payload with emulation prevention bytes inserted.
func WriteNALUnit(typ NALType, refIDC uint8, rbsp []byte) []byte {
	escaped := make([]byte, 0, len(rbsp)+len(rbsp)/16)
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b <= 0x03 {
			escaped = append(escaped, 0x03)
			zeros = 0
		}
		escaped = append(escaped, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}

	out := make([]byte, 0, len(startCode4)+1+len(escaped))
	out = append(out, startCode4...)
	out = append(out, refIDC<<5|uint8(typ))
	out = append(out, escaped...)
	return out
}

// unescapeRBSP removes emulation prevention bytes from a NAL payload.
func unescapeRBSP(data []byte) []byte {
	out := make([]byte, 0, len(data))
	zeros := 0
	for _, b := range data {
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		out = append(out, b)
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
	}
	return out
}
