package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huefri/internal/hub"
	"github.com/dokzlo13/huefri/internal/metrics"
)

// Manual command names
const (
	CommandColorNext      = "color_next"
	CommandColorPrev      = "color_prev"
	CommandColorSet       = "color_set"
	CommandBrightnessUp   = "brightness_up"
	CommandBrightnessDown = "brightness_down"
)

// ErrUnknownCommand is returned for commands or hubs the loop does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Command is a manual control request for one hub.
type Command struct {
	Hub   string
	Name  string
	Index int
}

// ParseColorCommand maps "next", "prev" or a palette index to a command.
func ParseColorCommand(hubName, arg string) (Command, error) {
	switch arg {
	case "next":
		return Command{Hub: hubName, Name: CommandColorNext}, nil
	case "prev":
		return Command{Hub: hubName, Name: CommandColorPrev}, nil
	}
	i, err := strconv.Atoi(arg)
	if err != nil {
		return Command{}, fmt.Errorf("%w: color %q", ErrUnknownCommand, arg)
	}
	return Command{Hub: hubName, Name: CommandColorSet, Index: i}, nil
}

// ParseBrightnessCommand maps "up" or "down" to a command.
func ParseBrightnessCommand(hubName, arg string) (Command, error) {
	switch arg {
	case "up":
		return Command{Hub: hubName, Name: CommandBrightnessUp}, nil
	case "down":
		return Command{Hub: hubName, Name: CommandBrightnessDown}, nil
	}
	return Command{}, fmt.Errorf("%w: brightness %q", ErrUnknownCommand, arg)
}

// Apply runs cmd against c.
func Apply(ctx context.Context, c hub.Controller, cmd Command) error {
	switch cmd.Name {
	case CommandColorNext:
		return c.CycleColorNext(ctx)
	case CommandColorPrev:
		return c.CycleColorPrev(ctx)
	case CommandColorSet:
		return c.SetColorByIndex(ctx, cmd.Index)
	case CommandBrightnessUp:
		return c.IncreaseBrightness(ctx)
	case CommandBrightnessDown:
		return c.DecreaseBrightness(ctx)
	}
	return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
}

type command struct {
	Command
	ctx    context.Context
	result chan error
}

// Submit hands cmd to the running loop and waits for its result. Commands
// run between cycles on the loop goroutine.
func (l *Loop) Submit(ctx context.Context, cmd Command) error {
	if _, ok := l.controllers[cmd.Hub]; !ok {
		return fmt.Errorf("%w: hub %q", ErrUnknownCommand, cmd.Hub)
	}

	c := command{Command: cmd, ctx: ctx, result: make(chan error, 1)}
	select {
	case l.commands <- c:
	case <-l.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-c.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) execute(ctx context.Context, cmd command) error {
	// the caller may give up; the loop's context still bounds the work
	if cmd.ctx != nil && cmd.ctx.Err() != nil {
		return cmd.ctx.Err()
	}

	err := Apply(ctx, l.controllers[cmd.Hub], cmd.Command)
	metrics.RecordManualCommand(cmd.Hub, cmd.Name, err)
	l.recorder.Record(hub.Event{Kind: hub.EventManual, Hub: cmd.Hub, Command: cmd.Name, Err: err})

	if err != nil {
		log.Error().Err(err).Str("hub", cmd.Hub).Str("command", cmd.Name).Msg("Manual command failed")
	} else {
		log.Info().Str("hub", cmd.Hub).Str("command", cmd.Name).Msg("Manual command executed")
	}
	return err
}
