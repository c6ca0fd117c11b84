package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bananalabs-oss/stocking/internal/client"
)

// run wires a command body to a client and a per-command deadline.
func run(cfg *Config, fn func(ctx context.Context, c *client.Client, out io.Writer, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := cfg.client()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
		defer cancel()
		return fn(ctx, c, cmd.OutOrStdout(), args)
	}
}

// roomFor picks --room, then the room of this device's session.
func roomFor(ctx context.Context, cfg *Config, c *client.Client) (string, error) {
	if cfg.room != "" {
		return cfg.room, nil
	}
	s, err := c.Session(ctx)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return s.Room.Code, nil
}

func resolve(ctx context.Context, cfg *Config, c *client.Client, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	code, err := roomFor(ctx, cfg, c)
	if err != nil {
		return uuid.Nil, err
	}
	return c.ResolveParticipant(ctx, code, arg)
}

func printRoom(out io.Writer, r *client.Room) {
	fmt.Fprintf(out, "Room %s (%s)\n", r.Code, r.Phase)
	for _, p := range r.Participants {
		var tags []string
		if p.IsAdmin {
			tags = append(tags, "admin")
		}
		switch {
		case p.Mine:
			tags = append(tags, "you")
		case p.Claimed:
			tags = append(tags, "claimed")
		default:
			tags = append(tags, "available")
		}
		fmt.Fprintf(out, "  %-24s %s  [%s]\n", p.Name, p.ID, strings.Join(tags, ", "))
	}
	if len(r.Exclusions) > 0 {
		fmt.Fprintln(out, "Exclusions:")
		for _, x := range r.Exclusions {
			fmt.Fprintf(out, "  %s never gives to %s  (%s)\n", r.NameOf(x.GiverID), r.NameOf(x.ReceiverID), x.ID)
		}
	}
	if r.Phase == "LOBBY" && len(r.Participants) < r.MinParticipants {
		fmt.Fprintf(out, "Need at least %d participants to draw.\n", r.MinParticipants)
	}
}

func createCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Open a new room with you as its admin",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			s, err := c.CreateRoom(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Room %s created. You are %s (admin).\n", s.Room.Code, s.Participant.Name)
			fmt.Fprintf(out, "Share the code %s so others can claim their names.\n", s.Room.Code)
			return nil
		}),
	}
}

func joinCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "join CODE",
		Short: "Look up a room and show which names are free to claim",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			r, err := c.Room(ctx, args[0])
			if err != nil {
				return err
			}
			printRoom(out, r)
			fmt.Fprintf(out, "Claim your name with: santa claim --room %s NAME\n", r.Code)
			return nil
		}),
	}
}

func whoamiCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the room and participant this device holds",
		Args:  cobra.NoArgs,
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			s, err := c.Session(ctx)
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(out, "This device has not claimed anyone yet.")
				return nil
			}
			role := "participant"
			if s.Participant.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(out, "%s (%s) in room %s, phase %s\n", s.Participant.Name, role, s.Room.Code, s.Room.Phase)
			return nil
		}),
	}
}

func listCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list [CODE]",
		Short: "Show a room's participants and exclusions",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			code := ""
			if len(args) == 1 {
				code = args[0]
			} else {
				var err error
				if code, err = roomFor(ctx, cfg, c); err != nil {
					return err
				}
				if code == "" {
					return errors.New("no room given and this device is not in one")
				}
			}
			r, err := c.Room(ctx, code)
			if err != nil {
				return err
			}
			printRoom(out, r)
			return nil
		}),
	}
}

func addCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add CODE NAME",
		Short: "Add a participant slot (admin only)",
		Args:  cobra.ExactArgs(2),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			p, err := c.AddParticipant(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Added %s (%s)\n", p.Name, p.ID)
			return nil
		}),
	}
}

func claimCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "claim PARTICIPANT",
		Short: "Claim a participant slot as this device",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			id, err := resolve(ctx, cfg, c, args[0])
			if err != nil {
				return err
			}
			p, err := c.Claim(ctx, id)
			if client.IsCode(err, "already_claimed") {
				return fmt.Errorf("%s is already claimed by another device; ask them to release it", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "You are now %s.\n", p.Name)
			return nil
		}),
	}
}

func releaseCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "release PARTICIPANT",
		Short: "Free a participant slot so another device can claim it",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			id, err := resolve(ctx, cfg, c, args[0])
			if err != nil {
				return err
			}
			if err := c.Release(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out, "Released %s.\n", args[0])
			return nil
		}),
	}
}

func removeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PARTICIPANT",
		Short: "Remove a participant and their exclusions (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			id, err := resolve(ctx, cfg, c, args[0])
			if err != nil {
				return err
			}
			if err := c.RemoveParticipant(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %s.\n", args[0])
			return nil
		}),
	}
}

func excludeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "exclude CODE GIVER RECEIVER",
		Short: "Forbid GIVER from drawing RECEIVER (admin only)",
		Args:  cobra.ExactArgs(3),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			code := args[0]
			giver, err := c.ResolveParticipant(ctx, code, args[1])
			if err != nil {
				return err
			}
			receiver, err := c.ResolveParticipant(ctx, code, args[2])
			if err != nil {
				return err
			}
			x, err := c.AddExclusion(ctx, code, giver, receiver)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s will never give to %s (%s)\n", args[1], args[2], x.ID)
			return nil
		}),
	}
}

func unexcludeCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "unexclude ID",
		Short: "Delete an exclusion (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid exclusion id %q", args[0])
			}
			if err := c.RemoveExclusion(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(out, "Exclusion removed.")
			return nil
		}),
	}
}

func drawCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "draw CODE",
		Short: "Draw names and move the room to REVEAL (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			err := c.Draw(ctx, args[0])
			switch {
			case client.IsCode(err, "constraint_unsatisfiable"):
				return errors.New("no valid draw exists with these exclusions; remove some and try again")
			case client.IsCode(err, "insufficient_participants"):
				return errors.New("not enough participants to draw yet")
			case err != nil:
				return err
			}
			fmt.Fprintln(out, "Names drawn. Everyone can now run: santa reveal")
			return nil
		}),
	}
}

func resetCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset CODE",
		Short: "Discard the draw and reopen the lobby (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			if err := c.Reset(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(out, "Draw discarded. The room is open again.")
			return nil
		}),
	}
}

func revealCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal",
		Short: "Show who you are giving a gift to",
		Args:  cobra.NoArgs,
		RunE: run(cfg, func(ctx context.Context, c *client.Client, out io.Writer, args []string) error {
			s, err := c.Session(ctx)
			if err != nil {
				return err
			}
			if s == nil {
				return errors.New("this device has not claimed anyone yet")
			}
			receiver, err := c.Receiver(ctx, s.Room.Code, s.Participant.ID)
			if err != nil {
				return err
			}
			if receiver == nil {
				fmt.Fprintln(out, "Names have not been drawn yet.")
				return nil
			}
			fmt.Fprintf(out, "%s, you are giving a gift to %s.\n", s.Participant.Name, receiver.Name)
			return nil
		}),
	}
}
