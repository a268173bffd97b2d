// Package extract decodes every frame of a source at once, without pacing,
// and lays frames out on a contact sheet.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/ports"
)

// Options configures Frames.
type Options struct {
	// MaxFrames stops decoding after this many frames. Zero means all.
	MaxFrames int

	Logger ports.Logger
}

// Frames opens url and decodes the selected stream into display frames in
// presentation order. Each frame's Duration is the gap to the next frame;
// the last one lasts until the end of the stream.
func Frames(ctx context.Context, opener ports.Opener, url string, opts Options) ([]ports.VideoFrame, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoop()
	}
	log = log.WithComponent("extract")

	s, err := opener.Open(url)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	info := s.Info()
	log.Debug("Extracting frames from %s (%dx%d)", url, info.Width, info.Height)

	var frames []ports.VideoFrame
	for !full(frames, opts.MaxFrames) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pkt, err := s.ReadPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if pkt.StreamIndex != info.Index {
			continue
		}

		raws, err := s.Decode(pkt)
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			img, err := s.ToDisplayFormat(raw)
			if err != nil {
				return nil, err
			}
			frames = append(frames, ports.VideoFrame{
				Image:       img,
				TimestampMs: s.TimestampMs(raw),
			})
			if full(frames, opts.MaxFrames) {
				break
			}
		}
	}

	for i := range frames {
		end := info.DurationMs
		if i+1 < len(frames) {
			end = frames[i+1].TimestampMs
		}
		frames[i].Duration = max(end-frames[i].TimestampMs, 0)
	}

	log.Debug("Extracted %d frames", len(frames))
	return frames, nil
}

func full(frames []ports.VideoFrame, limit int) bool {
	return limit > 0 && len(frames) >= limit
}

// FormatTimestamp renders milliseconds as mm:ss.mmm.
func FormatTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("%02d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
