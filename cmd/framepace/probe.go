package main

import (
	"fmt"
	"strconv"

	"github.com/ideamans/go-l10n"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/urfave/cli/v2"

	"github.com/user/framepace/pkg/extract"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/session"
)

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show the streams of a media file"),
		ArgsUsage: "<media>",
		Action: func(c *cli.Context) error {
			url, err := mediaArg(c)
			if err != nil {
				return err
			}
			streams, err := session.Probe(url)
			if err != nil {
				return err
			}
			fmt.Println(streamTable(streams))
			return nil
		},
	}
}

// streamTable renders streams with the one playback would select marked.
func streamTable(streams []ports.StreamInfo) string {
	selected, ok := session.SelectVideoStream(streams)

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		"#",
		l10n.T("Type"),
		l10n.T("Codec"),
		l10n.T("Size"),
		l10n.T("Time Base"),
		l10n.T("Duration"),
		l10n.T("Frames"),
		l10n.T("Selected"),
	})

	for _, s := range streams {
		size := "-"
		if s.MediaType == ports.MediaVideo {
			size = fmt.Sprintf("%dx%d", s.Width, s.Height)
		}
		mark := ""
		if ok && s.Index == selected.Index {
			mark = "*"
		}
		tw.AppendRow(table.Row{
			s.Index,
			s.MediaType,
			s.Container + "/" + s.Codec,
			size,
			fmt.Sprintf("%d/%d", s.TimeBase.Num, s.TimeBase.Den),
			extract.FormatTimestamp(s.DurationMs),
			strconv.Itoa(s.FrameCount),
			mark,
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignCenter},
	})

	return tw.Render()
}
