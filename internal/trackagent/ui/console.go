package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gosuri/uitable"
)

// Console prints the state to a writer every time it changes.
type Console struct {
	out io.Writer
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Run renders every state published by loop until ctx is done.
func (c *Console) Run(ctx context.Context, loop *Loop) error {
	states, cancel := loop.Subscribe()
	defer cancel()

	var lastAlert string
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-states:
			fmt.Fprintln(c.out, Render(s))
			if s.Alert != nil {
				key := s.Alert.Title + "\x00" + s.Alert.Message
				if key != lastAlert {
					fmt.Fprintf(c.out, "[ALERT] %s: %s\n", s.Alert.Title, s.Alert.Message)
					lastAlert = key
				}
			}
		}
	}
}

// Render formats s as a table.
func Render(s State) string {
	table := uitable.New()
	table.MaxColWidth = 80
	table.Wrap = true

	table.AddRow("TRACKING:", fmt.Sprintf("%v", s.Tracking))
	table.AddRow("BUTTON:", fmt.Sprintf("%s (%s)", s.ButtonLabel, s.ButtonColor))
	table.AddRow("POINTS:", len(s.Points))
	if len(s.Points) > 0 {
		p := s.Points[0]
		table.AddRow("LATEST:", fmt.Sprintf("%.6f,%.6f at %s", p.Latitude, p.Longitude, p.SampleTime.Format("15:04:05")))
	}
	ids := make([]string, 0, len(s.Geofences))
	for _, g := range s.Geofences {
		ids = append(ids, g.ID)
	}
	table.AddRow("GEOFENCES:", strings.Join(ids, ", "))
	if s.CenterLabel != "" {
		table.AddRow("CENTER:", s.CenterLabel)
	}
	if s.Alert != nil {
		table.AddRow("ALERT:", s.Alert.Title+": "+s.Alert.Message)
	}
	return table.String()
}
