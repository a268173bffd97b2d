package mocks

import (
	"fmt"
	"image"
	"io"
	"os"
	"sync"

	"github.com/user/framepace/pkg/ports"
)

// Session is a mock implementation of ports.Session that replays a fixed
// list of packets. By default every packet of the selected stream decodes
// to one frame carrying the packet's timestamps.
type Session struct {
	mu sync.Mutex

	StreamInfo ports.StreamInfo
	Packets    []ports.Packet

	ReadPacketFunc      func() (ports.Packet, error)
	DecodeFunc          func(pkt ports.Packet) ([]ports.RawFrame, error)
	ToDisplayFormatFunc func(frame ports.RawFrame) (*image.RGBA, error)
	SeekFunc            func(tsMs int64) error
	// BeforeReadFunc runs at the start of read n (1-based), outside the lock.
	BeforeReadFunc func(n int)

	pos         int
	reads       int
	decodes     int
	closes      int
	seeks       []int64
	targetSizes []image.Point
}

// NewClipSession creates a session whose selected stream holds one packet
// per timestamp. Timestamps are milliseconds; the first packet is a keyframe.
func NewClipSession(ptsMs ...int64) *Session {
	s := &Session{
		StreamInfo: ports.StreamInfo{
			Index:      0,
			MediaType:  ports.MediaVideo,
			Container:  "mock",
			Codec:      "mock",
			Width:      4,
			Height:     4,
			TimeBase:   ports.TimeBase{Num: 1, Den: 1000},
			FrameCount: len(ptsMs),
		},
	}
	for i, pts := range ptsMs {
		s.Packets = append(s.Packets, ports.Packet{
			StreamIndex: 0,
			Data:        []byte{byte(i)},
			PTS:         pts,
			DTS:         pts,
			Keyframe:    i == 0,
			Index:       i,
		})
	}
	return s
}

func (m *Session) Info() ports.StreamInfo {
	return m.StreamInfo
}

func (m *Session) ReadPacket() (ports.Packet, error) {
	m.mu.Lock()
	m.reads++
	n := m.reads
	fn := m.ReadPacketFunc
	before := m.BeforeReadFunc
	m.mu.Unlock()

	if before != nil {
		before(n)
	}
	if fn != nil {
		return fn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.Packets) {
		return ports.Packet{}, io.EOF
	}
	pkt := m.Packets[m.pos]
	m.pos++
	return pkt, nil
}

func (m *Session) Decode(pkt ports.Packet) ([]ports.RawFrame, error) {
	m.mu.Lock()
	m.decodes++
	fn := m.DecodeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(pkt)
	}
	if pkt.Flush {
		return nil, nil
	}
	img := image.NewRGBA(image.Rect(0, 0, m.StreamInfo.Width, m.StreamInfo.Height))
	return []ports.RawFrame{{Image: img, PTS: pkt.PTS, DTS: pkt.DTS}}, nil
}

func (m *Session) ToDisplayFormat(frame ports.RawFrame) (*image.RGBA, error) {
	if m.ToDisplayFormatFunc != nil {
		return m.ToDisplayFormatFunc(frame)
	}
	if rgba, ok := frame.Image.(*image.RGBA); ok {
		return rgba, nil
	}
	return nil, &ports.ScaleError{Err: fmt.Errorf("mock: unexpected image type %T", frame.Image)}
}

func (m *Session) TimestampMs(frame ports.RawFrame) int64 {
	return m.StreamInfo.TimeBase.Millis(frame.PTS)
}

func (m *Session) ReconfigureTargetSize(width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.targetSizes = append(m.targetSizes, image.Pt(width, height))
}

func (m *Session) Seek(tsMs int64) error {
	m.mu.Lock()
	m.seeks = append(m.seeks, tsMs)
	fn := m.SeekFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(tsMs)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = 0
	for i, pkt := range m.Packets {
		if pkt.StreamIndex == m.StreamInfo.Index && pkt.Keyframe && m.StreamInfo.TimeBase.Millis(pkt.PTS) <= tsMs {
			m.pos = i
		}
	}
	return nil
}

func (m *Session) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// ReadCount returns the number of ReadPacket calls (for test verification).
func (m *Session) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// DecodeCount returns the number of Decode calls (for test verification).
func (m *Session) DecodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decodes
}

// CloseCount returns the number of Close calls (for test verification).
func (m *Session) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Seeks returns every Seek target (for test verification).
func (m *Session) Seeks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]int64, len(m.seeks))
	copy(result, m.seeks)
	return result
}

// TargetSizes returns every ReconfigureTargetSize call (for test verification).
func (m *Session) TargetSizes() []image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]image.Point, len(m.targetSizes))
	copy(result, m.targetSizes)
	return result
}

var _ ports.Session = (*Session)(nil)

// Opener is a mock implementation of ports.Opener serving registered sessions.
type Opener struct {
	mu       sync.Mutex
	sessions map[string]ports.Session
	opened   []string

	OpenFunc func(url string) (ports.Session, error)
}

// NewOpener creates an Opener with no registered sources.
func NewOpener() *Opener {
	return &Opener{sessions: make(map[string]ports.Session)}
}

// Add registers the session returned for url.
func (m *Opener) Add(url string, s ports.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[url] = s
}

func (m *Opener) Open(url string) (ports.Session, error) {
	m.mu.Lock()
	m.opened = append(m.opened, url)
	fn := m.OpenFunc
	s, ok := m.sessions[url]
	m.mu.Unlock()

	if fn != nil {
		return fn(url)
	}
	if !ok {
		return nil, &ports.OpenError{Kind: ports.NoSuchFile, URL: url, Err: os.ErrNotExist}
	}
	return s, nil
}

// Opened returns every URL passed to Open (for test verification).
func (m *Opener) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.opened))
	copy(result, m.opened)
	return result
}

var _ ports.Opener = (*Opener)(nil)
