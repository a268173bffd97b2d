// Package config loads framepace settings from YAML.
package config

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/user/framepace/pkg/extract"
	"github.com/user/framepace/pkg/player"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/session"
)

// Config represents the full configuration for framepace.
type Config struct {
	// Playback
	FrameBufferCapacity int  `yaml:"frame_buffer_capacity"`
	AutoRepeat          bool `yaml:"auto_repeat"`

	// Decoding
	FFmpegPath    string `yaml:"ffmpeg_path"`
	ScaleToTarget bool   `yaml:"scale_to_target"`
	TargetWidth   int    `yaml:"target_width"`
	TargetHeight  int    `yaml:"target_height"`

	// Output
	LogLevel  string `yaml:"log_level"`
	OutputDir string `yaml:"output_dir"`

	// Extraction
	MaxFrames int         `yaml:"max_frames"`
	Sheet     SheetConfig `yaml:"sheet"`
}

// SheetConfig represents contact sheet layout and colours.
type SheetConfig struct {
	Columns         int     `yaml:"columns"`
	ThumbWidth      int     `yaml:"thumb_width"`
	Padding         int     `yaml:"padding"`
	FontPath        string  `yaml:"font_path"`
	FontSize        float64 `yaml:"font_size"`
	BackgroundColor string  `yaml:"background_color"`
	TextColor       string  `yaml:"text_color"`
	BorderColor     string  `yaml:"border_color"`

	// CaptionBackground is optional; empty keeps the sheet background.
	CaptionBackground string `yaml:"caption_background"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	sheet := extract.DefaultSheetOptions()
	return Config{
		FrameBufferCapacity: player.DefaultFrameBufferCapacity,
		AutoRepeat:          player.DefaultAutoRepeat,

		LogLevel: ports.LevelInfo.String(),

		Sheet: SheetConfig{
			Columns:           sheet.Columns,
			ThumbWidth:        sheet.ThumbWidth,
			Padding:           sheet.Padding,
			FontSize:          sheet.FontSize,
			BackgroundColor:   "#ffffff",
			TextColor:         "#000000",
			BorderColor:       "#cccccc",
			CaptionBackground: "#f0f0f0",
		},
	}
}

// LoadFromFile loads configuration from a YAML file. Keys missing from the
// file keep their default values.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Level returns the configured log level.
func (c Config) Level() ports.LogLevel {
	return ports.ParseLogLevel(c.LogLevel)
}

// ToPlayerOptions converts Config to player.Options.
func (c Config) ToPlayerOptions(log ports.Logger) player.Options {
	return player.Options{
		FrameBufferCapacity: c.FrameBufferCapacity,
		AutoRepeat:          c.AutoRepeat,
		Logger:              log,
	}
}

// ToOpenerOptions converts Config to session.Options.
func (c Config) ToOpenerOptions(log ports.Logger) session.Options {
	return session.Options{
		FFmpegPath:    c.FFmpegPath,
		ScaleToTarget: c.ScaleToTarget,
		Logger:        log,
	}
}

// ToSheetOptions converts Config to extract.SheetOptions.
func (c Config) ToSheetOptions() extract.SheetOptions {
	var captionBg color.Color
	if c.Sheet.CaptionBackground != "" {
		captionBg = ParseColor(c.Sheet.CaptionBackground)
	}
	return extract.SheetOptions{
		Columns:       c.Sheet.Columns,
		ThumbWidth:    c.Sheet.ThumbWidth,
		Padding:       c.Sheet.Padding,
		FontPath:      c.Sheet.FontPath,
		FontSize:      c.Sheet.FontSize,
		CaptionHeight: int(c.Sheet.FontSize) + 8,
		Background:    ParseColor(c.Sheet.BackgroundColor),
		TextColor:     ParseColor(c.Sheet.TextColor),
		BorderColor:   ParseColor(c.Sheet.BorderColor),

		CaptionBackground: captionBg,
	}
}

// ParseColor parses a hex color string (#rrggbb or #rgb) to color.Color.
// Malformed input yields black.
func ParseColor(hex string) color.Color {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}

	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return color.Black
	}

	var rgb [3]uint8
	for i := range rgb {
		hi, ok1 := hexValue(hex[2*i])
		lo, ok2 := hexValue(hex[2*i+1])
		if !ok1 || !ok2 {
			return color.Black
		}
		rgb[i] = hi<<4 | lo
	}

	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexValue(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
