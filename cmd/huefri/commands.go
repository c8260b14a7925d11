package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/huefri/internal/app"
	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/hue"
	"github.com/dokzlo13/huefri/internal/output"
	"github.com/dokzlo13/huefri/internal/palette"
	"github.com/dokzlo13/huefri/internal/syncer"
	"github.com/dokzlo13/huefri/internal/tradfri"
)

// connect loads the configuration and reaches both hubs without starting
// the sync loop.
func connect(ctx context.Context, opts *cliOptions) (*app.Services, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	svcs, err := app.NewServices(cfg)
	if err != nil {
		return nil, err
	}
	if err := svcs.Connect(ctx); err != nil {
		svcs.Close()
		return nil, err
	}
	return svcs, nil
}

func newLightsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lights",
		Short: "List the lights of both hubs with the index to use in the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.SignalContext()
			svcs, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer svcs.Close()

			rows, err := listLights(ctx, svcs)
			if err != nil {
				return err
			}
			return output.New(output.Options{JSON: opts.JSON, NoColor: opts.NoColor}).Lights(rows)
		},
	}
}

func listLights(ctx context.Context, svcs *app.Services) ([]output.Light, error) {
	var rows []output.Light
	hubs := svcs.Hubs

	hueLights, err := hubs.Hue.ListLights(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range hueLights {
		row := output.Light{
			Hub:        hue.Name,
			Index:      l.ID,
			ID:         l.ID,
			Name:       l.Name,
			Watched:    l.ID == hubs.Hue.Main,
			Controlled: slices.Contains(hubs.Hue.Controlled, l.ID),
		}
		if st := l.State; st != nil {
			row.On = st.On
			row.Brightness = int(st.Bri)
			row.Color, err = palette.Default.HexForHueSat(int(st.Hue), int(st.Sat))
			if err != nil {
				row.Color = fmt.Sprintf("hue %d sat %d", st.Hue, st.Sat)
			}
		}
		rows = append(rows, row)
	}

	devices, err := hubs.Tradfri.ListLights(ctx)
	if err != nil {
		return nil, err
	}
	for i, d := range devices {
		st := d.Light()
		rows = append(rows, output.Light{
			Hub:        tradfri.Name,
			Index:      i,
			ID:         d.ID,
			Name:       d.Name,
			On:         st.On,
			Brightness: st.Dimmer,
			Color:      st.Hex,
			Watched:    i == hubs.Tradfri.Main,
			Controlled: slices.Contains(hubs.Tradfri.Controlled, i),
		})
	}
	return rows, nil
}

func newIdentifyCmd(opts *cliOptions) *cobra.Command {
	var pause time.Duration
	cmd := &cobra.Command{
		Use:   "identify [index...]",
		Short: "Blink Tradfri lights one after another to learn their indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app.SignalContext()
			svcs, err := connect(ctx, opts)
			if err != nil {
				return err
			}
			defer svcs.Close()

			indices, err := parseIndices(args)
			if err != nil {
				return err
			}
			if len(indices) == 0 {
				lights, err := svcs.Hubs.Tradfri.ListLights(ctx)
				if err != nil {
					return err
				}
				for i := range lights {
					indices = append(indices, i)
				}
			}

			out := output.New(output.Options{NoColor: opts.NoColor})
			for _, i := range indices {
				out.Print(fmt.Sprintf("Light %d", i))
				if err := svcs.Hubs.Tradfri.Identify(ctx, i, pause); err != nil {
					return err
				}
			}
			out.Success("Done")
			return nil
		},
	}
	cmd.Flags().DurationVar(&pause, "pause", tradfri.IdentifyPause, "Delay between blink steps")
	return cmd
}

func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, a := range args {
		i, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid light index %q", a)
		}
		indices = append(indices, i)
	}
	return indices, nil
}

func newColorCmd(opts *cliOptions) *cobra.Command {
	var hubName string
	cmd := &cobra.Command{
		Use:       "color next|prev|<index>",
		Short:     "Set the controlled lights of one hub to a palette color",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"next", "prev"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := syncer.ParseColorCommand(hubName, args[0])
			if err != nil {
				return err
			}
			return runManual(opts, c)
		},
	}
	cmd.Flags().StringVar(&hubName, "hub", hue.Name, "Hub to control (hue or tradfri)")
	return cmd
}

func newBrightnessCmd(opts *cliOptions) *cobra.Command {
	var hubName string
	cmd := &cobra.Command{
		Use:       "brightness up|down",
		Short:     "Step the brightness of one hub's controlled lights",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := syncer.ParseBrightnessCommand(hubName, args[0])
			if err != nil {
				return err
			}
			return runManual(opts, c)
		},
	}
	cmd.Flags().StringVar(&hubName, "hub", hue.Name, "Hub to control (hue or tradfri)")
	return cmd
}

// runManual applies one command directly. A running daemon picks the change
// up on its next cycle and carries it to the other hub.
func runManual(opts *cliOptions, c syncer.Command) error {
	ctx := app.SignalContext()
	svcs, err := connect(ctx, opts)
	if err != nil {
		return err
	}
	defer svcs.Close()

	ctrl, err := svcs.Hubs.Controller(c.Hub)
	if err != nil {
		return err
	}
	err = syncer.Apply(ctx, ctrl, c)
	svcs.Ledger.Recorder().Record(hub.Event{Kind: hub.EventManual, Hub: c.Hub, Command: c.Name, Err: err})
	if err != nil {
		return err
	}

	output.New(output.Options{NoColor: opts.NoColor}).Success(fmt.Sprintf("%s: %s", c.Hub, c.Name))
	return nil
}
