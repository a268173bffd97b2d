package mp4demux

import (
	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framepace/pkg/ports"
)

// Codec names reported in ports.StreamInfo.Codec.
const (
	CodecH264    = "h264"
	CodecAV1     = "av1"
	CodecMJPEG   = "mjpeg"
	CodecHEVC    = "hevc"
	CodecUnknown = "unknown"
)

// mediaType maps the handler type of a track to a ports media type.
func mediaType(trak *mp4.TrakBox) string {
	if trak.Mdia == nil || trak.Mdia.Hdlr == nil {
		return ports.MediaOther
	}
	switch trak.Mdia.Hdlr.HandlerType {
	case "vide":
		return ports.MediaVideo
	case "soun":
		return ports.MediaAudio
	default:
		return ports.MediaOther
	}
}

// detectCodec inspects the sample description of a video track.
// The visual sample entry is returned when present so callers can read
// dimensions and decoder configuration from it.
func detectCodec(trak *mp4.TrakBox) (string, *mp4.VisualSampleEntryBox) {
	if trak.Mdia == nil || trak.Mdia.Minf == nil || trak.Mdia.Minf.Stbl == nil || trak.Mdia.Minf.Stbl.Stsd == nil {
		return CodecUnknown, nil
	}

	for _, child := range trak.Mdia.Minf.Stbl.Stsd.Children {
		vse, _ := child.(*mp4.VisualSampleEntryBox)
		switch child.Type() {
		case "avc1", "avc3":
			return CodecH264, vse
		case "av01":
			return CodecAV1, vse
		case "jpeg", "mjpa", "mjpb":
			return CodecMJPEG, vse
		case "hvc1", "hev1":
			// Detected so the error names it, but no decoder exists.
			return CodecHEVC, vse
		}
	}

	return CodecUnknown, nil
}

// parameterSets returns the SPS and PPS of an avcC box in Annex B form.
func parameterSets(vse *mp4.VisualSampleEntryBox) []byte {
	if vse == nil || vse.AvcC == nil {
		return nil
	}
	var out []byte
	for _, sps := range vse.AvcC.SPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, sps...)
	}
	for _, pps := range vse.AvcC.PPSnalus {
		out = append(out, 0, 0, 0, 1)
		out = append(out, pps...)
	}
	return out
}

// avccToAnnexB converts AVCC format (length-prefixed NALUs) to Annex B format (start code prefixed)
func avccToAnnexB(data []byte) []byte {
	var result []byte
	offset := 0

	for offset+4 <= len(data) {
		naluLen := int(data[offset])<<24 | int(data[offset+1])<<16 |
			int(data[offset+2])<<8 | int(data[offset+3])
		offset += 4

		if offset+naluLen > len(data) {
			break
		}

		result = append(result, 0, 0, 0, 1)
		result = append(result, data[offset:offset+naluLen]...)
		offset += naluLen
	}

	return result
}
