//go:build !js && !wasip1

package h264decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

// ffmpegProcess streams Annex B into ffmpeg and collects raw pictures.
type ffmpegProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *syncBuffer

	width  int
	height int

	mu      sync.Mutex
	frames  []*image.YCbCr
	readErr error
	done    chan struct{}
}

// findFFmpeg searches for ffmpeg in PATH and common locations.
// If customFFmpegPath is set, it uses that path instead.
func findFFmpeg() (string, error) {
	if customFFmpegPath != "" {
		if _, err := os.Stat(customFFmpegPath); err == nil {
			return customFFmpegPath, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, customFFmpegPath)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}

	path, err := exec.LookPath(execName)
	if err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files (x86)\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", ErrFFmpegNotFound
}

// checkPlatformAvailability checks if ffmpeg is available on the system.
func checkPlatformAvailability() bool {
	_, err := findFFmpeg()
	return err == nil
}

func startPlatformProcess(width, height int) (platformProcess, error) {
	ffmpegPath, err := findFFmpeg()
	if err != nil {
		return nil, err
	}

	p := &ffmpegProcess{
		width:  width,
		height: height,
		stderr: &syncBuffer{},
		done:   make(chan struct{}),
	}

	// Low probe settings let pictures come out while input is still arriving.
	p.cmd = exec.Command(ffmpegPath,
		"-hide_banner",
		"-loglevel", "error",
		"-probesize", "32",
		"-analyzeduration", "0",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "rawvideo",
		"-pix_fmt", "yuv420p",
		"-s", strconv.Itoa(width)+"x"+strconv.Itoa(height),
		"pipe:1",
	)
	p.cmd.Stderr = p.stderr

	p.stdin, err = p.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := p.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go p.readLoop(stdout)
	return p, nil
}

func (p *ffmpegProcess) readLoop(stdout io.Reader) {
	defer close(p.done)

	size, _, _ := pictureSize(p.width, p.height)
	for {
		buf := make([]byte, size)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				p.mu.Lock()
				p.readErr = err
				p.mu.Unlock()
			}
			return
		}

		img := yuv420Image(buf, p.width, p.height)
		p.mu.Lock()
		p.frames = append(p.frames, img)
		p.mu.Unlock()
	}
}

func (p *ffmpegProcess) write(data []byte) error {
	if _, err := p.stdin.Write(data); err != nil {
		return fmt.Errorf("%w: %v: %s", ErrDecodeFailed, err, p.stderr.String())
	}
	return nil
}

func (p *ffmpegProcess) take() []*image.YCbCr {
	p.mu.Lock()
	defer p.mu.Unlock()
	frames := p.frames
	p.frames = nil
	return frames
}

func (p *ffmpegProcess) finish() ([]*image.YCbCr, error) {
	p.stdin.Close()
	<-p.done
	waitErr := p.cmd.Wait()

	p.mu.Lock()
	readErr := p.readErr
	p.mu.Unlock()

	frames := p.take()
	if readErr != nil {
		return frames, fmt.Errorf("%w: read output: %v", ErrDecodeFailed, readErr)
	}
	if waitErr != nil {
		return frames, fmt.Errorf("%w: %v: %s", ErrDecodeFailed, waitErr, p.stderr.String())
	}
	return frames, nil
}

func (p *ffmpegProcess) kill() {
	p.stdin.Close()
	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}
	<-p.done
	p.cmd.Wait()
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes exec makes
// while the decoder reads it for error messages.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
