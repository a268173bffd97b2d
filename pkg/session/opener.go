package session

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/framepace/pkg/adapters/av1decoder"
	"github.com/user/framepace/pkg/adapters/gifcodec"
	"github.com/user/framepace/pkg/adapters/h264decoder"
	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/adapters/mjpegdecoder"
	"github.com/user/framepace/pkg/adapters/mp4demux"
	"github.com/user/framepace/pkg/ports"
)

// Container names reported in StreamInfo.Container.
const (
	ContainerMP4 = "mp4"
	ContainerGIF = "gif"
)

var gifMagic = []byte("GIF8")

// Options configures how sources are opened.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary used for H.264.
	FFmpegPath string

	// ScaleToTarget makes sessions scale output to the size given by
	// ReconfigureTargetSize.
	ScaleToTarget bool

	Logger ports.Logger
}

// Opener implements ports.Opener for local MP4 and GIF files.
type Opener struct {
	opts   Options
	logger ports.Logger
}

// NewOpener creates an opener.
func NewOpener(opts Options) *Opener {
	if opts.FFmpegPath != "" {
		h264decoder.SetFFmpegPath(opts.FFmpegPath)
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	return &Opener{opts: opts, logger: log.WithComponent("session")}
}

// Open resolves url, selects the largest video stream and starts a decoder
// for it.
//
// The selection flow:
//   - GIF: compositing decoder
//   - MP4 mjpeg: image/jpeg per sample
//   - MP4 h264: ffmpeg process
//   - MP4 av1: libaom (requires the aom build tag)
func (o *Opener) Open(url string) (ports.Session, error) {
	path := strings.TrimPrefix(url, "file://")

	demux, gifDemux, err := openContainer(path)
	if err != nil {
		return nil, &ports.OpenError{Kind: ports.NoSuchFile, URL: url, Err: err}
	}

	info, ok := SelectVideoStream(demux.Streams())
	if !ok {
		demux.Close()
		return nil, &ports.OpenError{Kind: ports.NoVideoStream, URL: url}
	}

	var dec ports.FrameDecoder
	switch {
	case gifDemux != nil:
		dec = gifDemux.NewDecoder()
	case info.Codec == mp4demux.CodecMJPEG:
		dec = mjpegdecoder.New()
	case info.Codec == mp4demux.CodecH264:
		h := h264decoder.New(h264decoder.Config{Width: info.Width, Height: info.Height})
		if err := h.Init(); err != nil {
			demux.Close()
			return nil, &ports.OpenError{Kind: ports.DecoderInitFailed, URL: url, Err: err}
		}
		dec = h
	case info.Codec == mp4demux.CodecAV1:
		a := av1decoder.New()
		if err := a.Init(); err != nil {
			demux.Close()
			return nil, &ports.OpenError{Kind: ports.DecoderInitFailed, URL: url, Err: err}
		}
		dec = a
	default:
		demux.Close()
		return nil, &ports.OpenError{
			Kind: ports.UnsupportedCodec,
			URL:  url,
			Err:  fmt.Errorf("codec %q", info.Codec),
		}
	}

	o.logger.Debug("Opened %s: %s/%s %dx%d, %d frames",
		path, info.Container, info.Codec, info.Width, info.Height, info.FrameCount)

	return New(demux, dec, info, o.opts.ScaleToTarget, o.logger), nil
}

// Probe opens url and returns every stream of its container without
// starting a decoder.
func Probe(url string) ([]ports.StreamInfo, error) {
	demux, _, err := openContainer(strings.TrimPrefix(url, "file://"))
	if err != nil {
		return nil, &ports.OpenError{Kind: ports.NoSuchFile, URL: url, Err: err}
	}
	defer demux.Close()
	return demux.Streams(), nil
}

// SelectVideoStream returns the video stream with the largest pixel area,
// the first one on ties.
func SelectVideoStream(streams []ports.StreamInfo) (ports.StreamInfo, bool) {
	best := -1
	bestArea := -1
	for i, s := range streams {
		if s.MediaType != ports.MediaVideo {
			continue
		}
		if area := s.Width * s.Height; area > bestArea {
			best, bestArea = i, area
		}
	}
	if best < 0 {
		return ports.StreamInfo{}, false
	}
	return streams[best], true
}

// openContainer sniffs the file header and opens the matching demuxer. The
// GIF demuxer is also returned typed since it builds its own decoder.
func openContainer(path string) (ports.Demuxer, *gifcodec.Demuxer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	head := make([]byte, len(gifMagic))
	_, err = io.ReadFull(f, head)
	f.Close()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	if bytes.Equal(head, gifMagic) {
		g, err := gifcodec.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	}

	m, err := mp4demux.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return m, nil, nil
}

var _ ports.Opener = (*Opener)(nil)
