package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/spf13/cobra"
)

func notesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Manage sticky notes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List sticky notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			wall, err := e.wall(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, n := range wall.Notes() {
				fmt.Fprintf(w, "%s\t%s\t%g,%g\t%s\n", n.ID, n.Color, n.Position.X, n.Position.Y, n.Content)
			}
			return w.Flush()
		},
	}

	add := &cobra.Command{
		Use:   "add [content]",
		Short: "Stick a note on the wall",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := args[0]
			req := &model.CreateNoteRequest{Content: &content}
			req.Color, _ = cmd.Flags().GetString("color")

			wall, err := e.wall(cmd)
			if err != nil {
				return err
			}
			note, err := wall.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", note.ID)
			return nil
		},
	}
	add.Flags().String("color", "", "Background color, e.g. #e3f2fd")

	edit := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change a sticky note's content, color or position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := &model.UpdateNoteRequest{}
			if flags.Changed("content") {
				content, _ := flags.GetString("content")
				patch.Content = &content
			}
			patch.Color, _ = flags.GetString("color")
			if flags.Changed("x") || flags.Changed("y") {
				x, _ := flags.GetFloat64("x")
				y, _ := flags.GetFloat64("y")
				patch.Position = &model.Position{X: x, Y: y}
			}
			if patch.Content == nil && patch.Color == "" && patch.Position == nil {
				return fmt.Errorf("nothing to change")
			}

			wall, err := e.wall(cmd)
			if err != nil {
				return err
			}
			note, err := wall.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%g,%g\t%s\n", note.ID, note.Color, note.Position.X, note.Position.Y, note.Content)
			return nil
		},
	}
	edit.Flags().String("content", "", "New content")
	edit.Flags().String("color", "", "New background color")
	edit.Flags().Float64("x", 0, "Horizontal position")
	edit.Flags().Float64("y", 0, "Vertical position")

	rm := &cobra.Command{
		Use:   "rm [id]",
		Short: "Remove a sticky note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wall, err := e.wall(cmd)
			if err != nil {
				return err
			}
			if err := wall.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Note removed")
			return nil
		},
	}

	cmd.AddCommand(list, add, edit, rm)
	return cmd
}
