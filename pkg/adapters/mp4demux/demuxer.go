// Package mp4demux reads packets from fragmented and progressive MP4 files.
//
// Packets of every track are interleaved by decode time, the way they are
// laid out for playback, so readers see non-video tracks too. H.264 samples
// are rewritten from AVCC to Annex B and keyframes carry the parameter sets.
package mp4demux

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framepace/pkg/ports"
)

var (
	// ErrNoTracks is returned when the file has no moov box or no tracks.
	ErrNoTracks = errors.New("mp4demux: no tracks found")

	// ErrStreamOutOfRange is returned for an unknown stream index.
	ErrStreamOutOfRange = errors.New("mp4demux: stream index out of range")
)

// nonSyncSampleFlag is sample_is_non_sync_sample in ISO/IEC 14496-12 sample flags.
const nonSyncSampleFlag = 0x00010000

type track struct {
	info     ports.StreamInfo
	trackID  uint32
	stbl     *mp4.StblBox
	paramSet []byte
}

// sampleRef locates one sample. Progressive samples are read lazily from
// the file; fragmented samples carry their data.
type sampleRef struct {
	stream int
	nr     uint32
	data   []byte
	dts    int64
	pts    int64
	dur    int64
	key    bool
	index  int
}

// Demuxer implements ports.Demuxer for MP4 files.
type Demuxer struct {
	reader io.ReadSeeker
	closer io.Closer
	tracks []*track
	order  []sampleRef
	pos    int
}

// Open opens an MP4 file.
func Open(path string) (*Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	d, err := NewFromReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	d.closer = f
	return d, nil
}

// NewFromReader parses the MP4 structure available from reader.
func NewFromReader(reader io.ReadSeeker) (*Demuxer, error) {
	mp4File, err := mp4.DecodeFile(reader)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	d := &Demuxer{reader: reader}

	if mp4File.IsFragmented() {
		err = d.loadFragmented(mp4File)
	} else {
		err = d.loadProgressive(mp4File)
	}
	if err != nil {
		return nil, err
	}

	// Interleave by decode time in milliseconds, keeping track order on ties.
	slices.SortStableFunc(d.order, func(a, b sampleRef) int {
		am := d.tracks[a.stream].info.TimeBase.Millis(a.dts)
		bm := d.tracks[b.stream].info.TimeBase.Millis(b.dts)
		switch {
		case am < bm:
			return -1
		case am > bm:
			return 1
		default:
			return a.stream - b.stream
		}
	})

	return d, nil
}

func (d *Demuxer) addTrack(trak *mp4.TrakBox) *track {
	t := &track{
		trackID: trak.Tkhd.TrackID,
		info: ports.StreamInfo{
			Index:     len(d.tracks),
			MediaType: mediaType(trak),
			Container: "mp4",
			Codec:     CodecUnknown,
			TimeBase:  ports.TimeBase{Num: 1, Den: 1000},
		},
	}

	if trak.Mdia != nil && trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale != 0 {
		t.info.TimeBase.Den = int64(trak.Mdia.Mdhd.Timescale)
	}
	if trak.Mdia != nil && trak.Mdia.Minf != nil {
		t.stbl = trak.Mdia.Minf.Stbl
	}

	if t.info.MediaType == ports.MediaVideo {
		codec, vse := detectCodec(trak)
		t.info.Codec = codec
		if vse != nil {
			t.info.Width = int(vse.Width)
			t.info.Height = int(vse.Height)
		}
		if t.info.Width == 0 {
			t.info.Width = int(trak.Tkhd.Width >> 16)
			t.info.Height = int(trak.Tkhd.Height >> 16)
		}
		if codec == CodecH264 {
			t.paramSet = parameterSets(vse)
		}
	}

	d.tracks = append(d.tracks, t)
	return t
}

func (d *Demuxer) loadFragmented(mp4File *mp4.File) error {
	if mp4File.Init == nil || mp4File.Init.Moov == nil || len(mp4File.Init.Moov.Traks) == 0 {
		return ErrNoTracks
	}

	byID := make(map[uint32]*track)
	trexs := make(map[uint32]*mp4.TrexBox)
	for _, trak := range mp4File.Init.Moov.Traks {
		t := d.addTrack(trak)
		byID[t.trackID] = t
	}
	if mp4File.Init.Moov.Mvex != nil {
		for _, trex := range mp4File.Init.Moov.Mvex.Trexs {
			trexs[trex.TrackID] = trex
		}
	}

	for _, seg := range mp4File.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || len(frag.Moof.Trafs) == 0 {
				continue
			}
			for _, traf := range frag.Moof.Trafs {
				trackID := traf.Tfhd.TrackID
				t, ok := byID[trackID]
				if !ok {
					continue
				}

				// GetFullSamples picks the traf by trex track ID.
				trex := trexs[trackID]
				if trex == nil {
					trex = &mp4.TrexBox{TrackID: trackID}
				}
				samples, err := frag.GetFullSamples(trex)
				if err != nil {
					return fmt.Errorf("get samples of track %d: %w", trackID, err)
				}

				for _, sample := range samples {
					dts := int64(sample.DecodeTime)
					d.order = append(d.order, sampleRef{
						stream: t.info.Index,
						data:   sample.Data,
						dts:    dts,
						pts:    dts + int64(sample.CompositionTimeOffset),
						dur:    int64(sample.Dur),
						key:    sample.Flags&nonSyncSampleFlag == 0,
						index:  t.info.FrameCount,
					})
					t.info.FrameCount++
					t.info.DurationMs = t.info.TimeBase.Millis(dts + int64(sample.Dur))
				}
			}
		}
	}

	return nil
}

func (d *Demuxer) loadProgressive(mp4File *mp4.File) error {
	if mp4File.Moov == nil || len(mp4File.Moov.Traks) == 0 {
		return ErrNoTracks
	}

	for _, trak := range mp4File.Moov.Traks {
		t := d.addTrack(trak)
		stbl := t.stbl
		if stbl == nil || stbl.Stsz == nil {
			continue
		}

		syncSamples := make(map[uint32]bool)
		if stbl.Stss != nil {
			for _, sampleNr := range stbl.Stss.SampleNumber {
				syncSamples[sampleNr] = true
			}
		}

		sampleCount := stbl.Stsz.SampleNumber
		for sampleNr := uint32(1); sampleNr <= sampleCount; sampleNr++ {
			var decodeTime uint64
			var dur uint32
			if stbl.Stts != nil {
				decodeTime, dur = stbl.Stts.GetDecodeTime(sampleNr)
			}
			dts := int64(decodeTime)
			pts := dts
			if stbl.Ctts != nil {
				pts += int64(stbl.Ctts.GetCompositionTimeOffset(sampleNr))
			}
			d.order = append(d.order, sampleRef{
				stream: t.info.Index,
				nr:     sampleNr,
				dts:    dts,
				pts:    pts,
				dur:    int64(dur),
				key:    stbl.Stss == nil || syncSamples[sampleNr],
				index:  int(sampleNr - 1),
			})
			t.info.DurationMs = t.info.TimeBase.Millis(dts + int64(dur))
		}
		t.info.FrameCount = int(sampleCount)
	}

	return nil
}

// Streams lists every track.
func (d *Demuxer) Streams() []ports.StreamInfo {
	infos := make([]ports.StreamInfo, len(d.tracks))
	for i, t := range d.tracks {
		infos[i] = t.info
	}
	return infos
}

// ReadPacket returns the next sample in decode order.
func (d *Demuxer) ReadPacket() (ports.Packet, error) {
	if d.pos >= len(d.order) {
		return ports.Packet{}, io.EOF
	}
	ref := d.order[d.pos]
	d.pos++

	data := ref.data
	if data == nil && ref.nr > 0 {
		var err error
		data, err = getSampleData(d.tracks[ref.stream].stbl, d.reader, ref.nr)
		if err != nil {
			return ports.Packet{}, fmt.Errorf("read sample %d of stream %d: %w", ref.nr, ref.stream, err)
		}
	}

	t := d.tracks[ref.stream]
	if t.info.Codec == CodecH264 {
		annexB := avccToAnnexB(data)
		if ref.key && len(t.paramSet) > 0 {
			data = make([]byte, len(t.paramSet)+len(annexB))
			copy(data, t.paramSet)
			copy(data[len(t.paramSet):], annexB)
		} else {
			data = annexB
		}
	}

	return ports.Packet{
		StreamIndex: ref.stream,
		Data:        data,
		PTS:         ref.pts,
		DTS:         ref.dts,
		Keyframe:    ref.key,
		Index:       ref.index,
	}, nil
}

// SeekKeyframe moves to the last keyframe of stream presented at or before ts.
// Without such a keyframe it moves to the first sample of the stream.
func (d *Demuxer) SeekKeyframe(stream int, ts int64) error {
	if stream < 0 || stream >= len(d.tracks) {
		return fmt.Errorf("%w: %d", ErrStreamOutOfRange, stream)
	}

	target := -1
	first := -1
	for i, ref := range d.order {
		if ref.stream != stream {
			continue
		}
		if first < 0 {
			first = i
		}
		if ref.key && ref.pts <= ts {
			target = i
		}
	}
	if target < 0 {
		target = max(first, 0)
	}
	d.pos = target
	return nil
}

// CodecConfig returns the H.264 parameter sets of a stream in Annex B form.
func (d *Demuxer) CodecConfig(stream int) []byte {
	if stream < 0 || stream >= len(d.tracks) {
		return nil
	}
	return d.tracks[stream].paramSet
}

// Close closes the file opened by Open. It is idempotent.
func (d *Demuxer) Close() error {
	if d.closer == nil {
		return nil
	}
	err := d.closer.Close()
	d.closer = nil
	return err
}

// getSampleData reads sample data from a progressive MP4 file
func getSampleData(stbl *mp4.StblBox, reader io.ReadSeeker, sampleNr uint32) ([]byte, error) {
	if stbl == nil || stbl.Stsc == nil || stbl.Stsz == nil {
		return nil, fmt.Errorf("missing stsc or stsz box")
	}

	chunkNr, firstSampleInChunk, err := stbl.Stsc.ChunkNrFromSampleNr(int(sampleNr))
	if err != nil {
		return nil, fmt.Errorf("get chunk nr: %w", err)
	}

	var chunkOffset uint64
	if stbl.Stco != nil {
		chunkOffset, err = stbl.Stco.GetOffset(chunkNr)
		if err != nil {
			return nil, fmt.Errorf("get chunk offset: %w", err)
		}
	} else if stbl.Co64 != nil {
		if chunkNr < 1 || chunkNr > len(stbl.Co64.ChunkOffset) {
			return nil, fmt.Errorf("chunk nr out of range")
		}
		chunkOffset = stbl.Co64.ChunkOffset[chunkNr-1]
	} else {
		return nil, fmt.Errorf("no stco or co64 box")
	}

	offset := chunkOffset
	for s := uint32(firstSampleInChunk); s < sampleNr; s++ {
		offset += uint64(stbl.Stsz.GetSampleSize(int(s)))
	}

	sampleSize := stbl.Stsz.GetSampleSize(int(sampleNr))

	if _, err := reader.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to sample: %w", err)
	}

	data := make([]byte, sampleSize)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, fmt.Errorf("read sample: %w", err)
	}

	return data, nil
}

var _ ports.Demuxer = (*Demuxer)(nil)
