package player

import "fmt"

// CommandType identifies a worker command.
type CommandType int

const (
	CmdParse CommandType = iota
	CmdPlay
	CmdStop
	CmdPause
	CmdResume
	CmdSeek
	CmdResize
)

func (t CommandType) String() string {
	switch t {
	case CmdParse:
		return "parse"
	case CmdPlay:
		return "play"
	case CmdStop:
		return "stop"
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdSeek:
		return "seek"
	case CmdResize:
		return "resize"
	default:
		return "unknown"
	}
}

// Command is a request from the caller to the decode worker. Only the fields
// relevant to Type are set.
type Command struct {
	Type        CommandType
	URL         string
	TimestampMs int64
	Width       int
	Height      int

	// gen tags Parse and Stop with the caller's source generation.
	gen uint64
}

func (c Command) String() string {
	switch c.Type {
	case CmdParse:
		return fmt.Sprintf("parse(%s)", c.URL)
	case CmdSeek:
		return fmt.Sprintf("seek(%d)", c.TimestampMs)
	case CmdResize:
		return fmt.Sprintf("resize(%dx%d)", c.Width, c.Height)
	default:
		return c.Type.String()
	}
}

func ParseCommand(url string) Command {
	return Command{Type: CmdParse, URL: url}
}

func PlayCommand() Command {
	return Command{Type: CmdPlay}
}

func StopCommand() Command {
	return Command{Type: CmdStop}
}

func PauseCommand() Command {
	return Command{Type: CmdPause}
}

func ResumeCommand() Command {
	return Command{Type: CmdResume}
}

func SeekCommand(tsMs int64) Command {
	return Command{Type: CmdSeek, TimestampMs: tsMs}
}

func ResizeCommand(width, height int) Command {
	return Command{Type: CmdResize, Width: width, Height: height}
}
