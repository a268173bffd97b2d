package mocks

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"image/jpeg"

	"github.com/Eyevinn/mp4ff/mp4"
)

// MP4Options configures BuildMP4.
type MP4Options struct {
	// FourCC is the visual sample entry type. Defaults to "jpeg".
	FourCC string
	// Timescale of the video track. Defaults to 1000.
	Timescale uint32
	// Audio adds an audio track with 20 ms samples spanning the clip.
	Audio bool
	// NoVideo omits the video track.
	NoVideo bool
	// SharedFragment writes audio and video into one multi-track fragment,
	// audio traf first.
	SharedFragment bool
}

// BuildMP4 creates a fragmented MP4 whose video samples are JPEG images,
// one per presentation time in ptsMs. Frame i is filled with FrameColor(i).
func BuildMP4(width, height int, ptsMs []int64, opts MP4Options) ([]byte, error) {
	fourCC := opts.FourCC
	if fourCC == "" {
		fourCC = "jpeg"
	}
	timescale := opts.Timescale
	if timescale == 0 {
		timescale = 1000
	}

	init := mp4.CreateEmptyInit()
	var videoID, audioID uint32

	if !opts.NoVideo {
		init.AddEmptyTrack(timescale, "video", "en")
		trak := init.Moov.Traks[len(init.Moov.Traks)-1]
		vse := mp4.CreateVisualSampleEntryBox(fourCC, uint16(width), uint16(height), nil)
		trak.Mdia.Minf.Stbl.Stsd.AddChild(vse)
		trak.Tkhd.Width = mp4.Fixed32(width << 16)
		trak.Tkhd.Height = mp4.Fixed32(height << 16)
		videoID = trak.Tkhd.TrackID
	}
	if opts.Audio {
		init.AddEmptyTrack(48000, "audio", "en")
		audioID = init.Moov.Traks[len(init.Moov.Traks)-1].Tkhd.TrackID
	}

	var buf bytes.Buffer
	ftyp := mp4.NewFtyp("isom", 0x200, []string{"isom", "iso2", "mp41"})
	if err := ftyp.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode ftyp: %w", err)
	}
	if err := init.Moov.Encode(&buf); err != nil {
		return nil, fmt.Errorf("encode moov: %w", err)
	}

	var videoSamples, audioSamples []mp4.FullSample
	if videoID != 0 {
		for i, pts := range ptsMs {
			data, err := encodeJPEG(width, height, FrameColor(i))
			if err != nil {
				return nil, err
			}
			durMs := int64(40)
			if i < len(ptsMs)-1 {
				durMs = ptsMs[i+1] - pts
			}
			videoSamples = append(videoSamples, mp4.FullSample{
				Sample: mp4.Sample{
					Flags: mp4.SyncSampleFlags,
					Size:  uint32(len(data)),
					Dur:   uint32(durMs * int64(timescale) / 1000),
				},
				DecodeTime: uint64(pts * int64(timescale) / 1000),
				Data:       data,
			})
		}
	}
	if audioID != 0 {
		var end int64 = 200
		if len(ptsMs) > 0 {
			end = ptsMs[len(ptsMs)-1] + 40
		}
		for t := int64(0); t < end; t += 20 {
			audioSamples = append(audioSamples, mp4.FullSample{
				Sample: mp4.Sample{
					Flags: mp4.SyncSampleFlags,
					Size:  4,
					Dur:   960,
				},
				DecodeTime: uint64(t * 48),
				Data:       []byte{0xde, 0xad, 0xbe, 0xef},
			})
		}
	}

	if opts.SharedFragment && videoID != 0 && audioID != 0 {
		frag, err := mp4.CreateMultiTrackFragment(1, []uint32{audioID, videoID})
		if err != nil {
			return nil, fmt.Errorf("create fragment: %w", err)
		}
		for _, fs := range audioSamples {
			if err := frag.AddFullSampleToTrack(fs, audioID); err != nil {
				return nil, fmt.Errorf("add audio sample: %w", err)
			}
		}
		for _, fs := range videoSamples {
			if err := frag.AddFullSampleToTrack(fs, videoID); err != nil {
				return nil, fmt.Errorf("add video sample: %w", err)
			}
		}
		if err := frag.Encode(&buf); err != nil {
			return nil, fmt.Errorf("encode fragment: %w", err)
		}
		return buf.Bytes(), nil
	}

	seq := uint32(1)
	for _, part := range []struct {
		trackID uint32
		samples []mp4.FullSample
	}{{videoID, videoSamples}, {audioID, audioSamples}} {
		if part.trackID == 0 || len(part.samples) == 0 {
			continue
		}
		frag, err := mp4.CreateFragment(seq, part.trackID)
		if err != nil {
			return nil, fmt.Errorf("create fragment: %w", err)
		}
		seq++
		for _, fs := range part.samples {
			frag.AddFullSample(fs)
		}
		if err := frag.Encode(&buf); err != nil {
			return nil, fmt.Errorf("encode fragment: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// BuildGIF creates an animated GIF with one frame per delay (in 1/100 s).
// Frame i is filled with FrameColor(i).
func BuildGIF(width, height int, delaysCs []int) ([]byte, error) {
	anim := &gif.GIF{}
	for i, delay := range delaysCs {
		frame := image.NewPaletted(image.Rect(0, 0, width, height), palette.WebSafe)
		idx := uint8(frame.Palette.Index(FrameColor(i)))
		for p := range frame.Pix {
			frame.Pix[p] = idx
		}
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
		anim.Disposal = append(anim.Disposal, gif.DisposalNone)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// FrameColor returns the fill color of fixture frame i.
func FrameColor(i int) color.RGBA {
	colors := []color.RGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	return colors[i%len(colors)]
}

func encodeJPEG(width, height int, c color.Color) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
