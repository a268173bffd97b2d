//go:build aom

package av1decoder

/*
#cgo pkg-config: aom
#include <aom/aom_decoder.h>
#include <aom/aomdx.h>
#include <stdlib.h>
#include <string.h>

static aom_codec_iface_t* get_av1_decoder_interface() {
    return aom_codec_av1_dx();
}

static aom_codec_err_t init_decoder(aom_codec_ctx_t *ctx, aom_codec_iface_t *iface) {
    return aom_codec_dec_init(ctx, iface, NULL, 0);
}

static unsigned char* get_plane(aom_image_t *img, int plane) {
    return img->planes[plane];
}

static int get_stride(aom_image_t *img, int plane) {
    return img->stride[plane];
}

static unsigned int get_width(aom_image_t *img) {
    return img->d_w;
}

static unsigned int get_height(aom_image_t *img) {
    return img->d_h;
}

static int is_i420(aom_image_t *img) {
    return img->fmt == AOM_IMG_FMT_I420;
}
*/
import "C"

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/user/framepace/pkg/ports"
)

// Decoder implements AV1 video decoding using libaom.
type Decoder struct {
	codec *C.aom_codec_ctx_t
}

// New creates a new AV1 decoder.
func New() *Decoder {
	return &Decoder{}
}

// Init initializes the decoder.
func (d *Decoder) Init() error {
	d.codec = (*C.aom_codec_ctx_t)(C.malloc(C.sizeof_aom_codec_ctx_t))
	if d.codec == nil {
		return fmt.Errorf("failed to allocate decoder context")
	}
	C.memset(unsafe.Pointer(d.codec), 0, C.sizeof_aom_codec_ctx_t)

	iface := C.get_av1_decoder_interface()
	if res := C.init_decoder(d.codec, iface); res != C.AOM_CODEC_OK {
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
		return fmt.Errorf("failed to initialize decoder: %d", res)
	}

	return nil
}

// Decode sends one temporal unit and returns every shown frame.
func (d *Decoder) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	if pkt.Flush {
		return d.Flush()
	}
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if len(pkt.Data) == 0 {
		return nil, nil
	}

	res := C.aom_codec_decode(
		d.codec,
		(*C.uint8_t)(unsafe.Pointer(&pkt.Data[0])),
		C.size_t(len(pkt.Data)),
		nil,
	)
	if res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("decode failed: %d", res)
	}

	return d.collect(pkt.PTS, pkt.DTS)
}

// Flush signals end of stream and returns any remaining frames.
func (d *Decoder) Flush() ([]ports.RawFrame, error) {
	if d.codec == nil {
		return nil, ErrNotInitialized
	}
	if res := C.aom_codec_decode(d.codec, nil, 0, nil); res != C.AOM_CODEC_OK {
		return nil, fmt.Errorf("flush failed: %d", res)
	}
	return d.collect(0, 0)
}

// Reset recreates the codec context.
func (d *Decoder) Reset() error {
	d.Close()
	return d.Init()
}

// Close releases decoder resources.
func (d *Decoder) Close() error {
	if d.codec != nil {
		C.aom_codec_destroy(d.codec)
		C.free(unsafe.Pointer(d.codec))
		d.codec = nil
	}
	return nil
}

func (d *Decoder) collect(pts, dts int64) ([]ports.RawFrame, error) {
	var frames []ports.RawFrame
	var iter C.aom_codec_iter_t
	for {
		img := C.aom_codec_get_frame(d.codec, &iter)
		if img == nil {
			return frames, nil
		}
		if C.is_i420(img) == 0 {
			return frames, ErrUnsupportedFormat
		}
		frames = append(frames, ports.RawFrame{
			Image: copyI420(img),
			PTS:   pts,
			DTS:   dts,
			Range: ports.RangeLimited,
		})
	}
}

// copyI420 copies the planes of an 8-bit 4:2:0 picture into Go memory.
func copyI420(img *C.aom_image_t) *image.YCbCr {
	width := int(C.get_width(img))
	height := int(C.get_height(img))

	out := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	cw := (width + 1) / 2
	ch := (height + 1) / 2

	copyPlane(out.Y, out.YStride, C.get_plane(img, 0), int(C.get_stride(img, 0)), width, height)
	copyPlane(out.Cb, out.CStride, C.get_plane(img, 1), int(C.get_stride(img, 1)), cw, ch)
	copyPlane(out.Cr, out.CStride, C.get_plane(img, 2), int(C.get_stride(img, 2)), cw, ch)
	return out
}

func copyPlane(dst []byte, dstStride int, src *C.uchar, srcStride, width, rows int) {
	plane := unsafe.Slice((*byte)(unsafe.Pointer(src)), srcStride*rows)
	for y := 0; y < rows; y++ {
		copy(dst[y*dstStride:y*dstStride+width], plane[y*srcStride:y*srcStride+width])
	}
}

var _ ports.FrameDecoder = (*Decoder)(nil)
