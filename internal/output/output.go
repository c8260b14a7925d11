// Package output prints human-facing CLI results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
)

type Options struct {
	JSON    bool
	NoColor bool
	Out     io.Writer
	Err     io.Writer
}

type Output struct {
	JSON bool

	out io.Writer
	err io.Writer

	green  *color.Color
	yellow *color.Color
	red    *color.Color
	gray   *color.Color
	bold   *color.Color
}

func New(opts Options) *Output {
	if opts.NoColor {
		color.NoColor = true
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	return &Output{
		JSON:   opts.JSON,
		out:    opts.Out,
		err:    opts.Err,
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		red:    color.New(color.FgRed),
		gray:   color.New(color.FgHiBlack),
		bold:   color.New(color.Bold),
	}
}

func (o *Output) Success(msg string) {
	if o.JSON {
		return
	}
	fmt.Fprintln(o.out, o.green.Sprint(msg))
}

func (o *Output) Warn(msg string) {
	if o.JSON {
		return
	}
	fmt.Fprintln(o.out, o.yellow.Sprint(msg))
}

func (o *Output) Error(msg string) {
	fmt.Fprintln(o.err, o.red.Sprint(msg))
}

func (o *Output) Print(msg string) {
	if o.JSON {
		return
	}
	fmt.Fprintln(o.out, msg)
}

func (o *Output) EmitJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Light is one row of a light listing.
type Light struct {
	Hub        string `json:"hub"`
	Index      int    `json:"index"`
	ID         int    `json:"id"`
	Name       string `json:"name"`
	On         bool   `json:"on"`
	Brightness int    `json:"brightness"`
	Color      string `json:"color"`
	Watched    bool   `json:"watched,omitempty"`
	Controlled bool   `json:"controlled,omitempty"`
}

// Lights prints a table of lights, or JSON when requested.
func (o *Output) Lights(lights []Light) error {
	if o.JSON {
		return o.EmitJSON(lights)
	}

	tw := tabwriter.NewWriter(o.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, o.bold.Sprint("HUB\tINDEX\tID\tNAME\tSTATE\tBRI\tCOLOR\tROLE"))
	for _, l := range lights {
		state := o.gray.Sprint("off")
		if l.On {
			state = o.green.Sprint("on")
		}
		role := ""
		switch {
		case l.Watched && l.Controlled:
			role = "watched, controlled"
		case l.Watched:
			role = "watched"
		case l.Controlled:
			role = "controlled"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%d\t%s\t%s\n", l.Hub, l.Index, l.ID, l.Name, state, l.Brightness, l.Color, role)
	}
	return tw.Flush()
}
