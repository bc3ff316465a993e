package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hiroki-koketsu/taskwall/internal/model"
	"github.com/hiroki-koketsu/taskwall/internal/view"
	"github.com/spf13/cobra"
)

var now = time.Now

func listCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally through a view (Today, Upcoming or a tag)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.collection(cmd)
			if err != nil {
				return err
			}
			key, _ := cmd.Flags().GetString("view")
			printTasks(cmd.OutOrStdout(), c.View(view.Key(key), now()))
			return nil
		},
	}
	cmd.Flags().StringP("view", "v", string(view.Calendar), "View to show")
	return cmd
}

func addCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &model.CreateTaskRequest{Title: args[0]}
			req.Description, _ = cmd.Flags().GetString("description")
			req.Tags, _ = cmd.Flags().GetStringSlice("tag")
			list, _ := cmd.Flags().GetString("list")
			req.List = model.List(list)
			if due, _ := cmd.Flags().GetString("due"); due != "" {
				t, err := parseDue(due)
				if err != nil {
					return err
				}
				req.DueDate = &t
			}

			c, err := e.collection(cmd)
			if err != nil {
				return err
			}
			task, err := c.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", task.ID)
			return nil
		},
	}
	cmd.Flags().String("due", "", "Due date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().StringSliceP("tag", "t", nil, "Tag (repeatable)")
	cmd.Flags().StringP("list", "l", "", "List: Personal, Work or \"List 1\"")
	cmd.Flags().StringP("description", "d", "", "Description")
	return cmd
}

func editCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := taskPatch(cmd)
			if err != nil {
				return err
			}
			c, err := e.collection(cmd)
			if err != nil {
				return err
			}
			task, err := c.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), []model.Task{*task})
			return nil
		},
	}
	cmd.Flags().String("title", "", "New title")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("due", "", "Due date, YYYY-MM-DD or RFC 3339")
	cmd.Flags().Bool("no-due", false, "Clear the due date")
	cmd.Flags().StringSliceP("tag", "t", nil, "Replace tags (repeatable)")
	cmd.Flags().StringP("list", "l", "", "List: Personal, Work or \"List 1\"")
	cmd.MarkFlagsMutuallyExclusive("due", "no-due")
	return cmd
}

// taskPatch builds an update from the flags that were set.
func taskPatch(cmd *cobra.Command) (*model.UpdateTaskRequest, error) {
	flags := cmd.Flags()
	patch := &model.UpdateTaskRequest{}
	changed := false

	if flags.Changed("title") {
		title, _ := flags.GetString("title")
		patch.Title = &title
		changed = true
	}
	if flags.Changed("description") {
		desc, _ := flags.GetString("description")
		patch.Description = &desc
		changed = true
	}
	if flags.Changed("list") {
		list, _ := flags.GetString("list")
		l := model.List(list)
		patch.List = &l
		changed = true
	}
	if flags.Changed("tag") {
		tags, _ := flags.GetStringSlice("tag")
		patch.Tags = &tags
		changed = true
	}
	if flags.Changed("due") {
		due, _ := flags.GetString("due")
		t, err := parseDue(due)
		if err != nil {
			return nil, err
		}
		patch.DueDate = model.NewNullableTime(t)
		changed = true
	}
	if noDue, _ := flags.GetBool("no-due"); noDue {
		patch.DueDate = model.NullableTime{Set: true}
		changed = true
	}
	if !changed {
		return nil, fmt.Errorf("nothing to change")
	}
	return patch, nil
}

func toggleCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [id]",
		Short: "Flip a task's completed flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.collection(cmd)
			if err != nil {
				return err
			}
			task, err := c.Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			state := "open"
			if task.Completed {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", task.ID, state)
			return nil
		},
	}
}

func rmCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.collection(cmd)
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Task removed")
			return nil
		},
	}
}

func countsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show sidebar counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := e.collection(cmd)
			if err != nil {
				return err
			}
			counts := c.Counts(now())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, key := range view.Sidebar() {
				fmt.Fprintf(w, "%s\t%d\n", key, counts[key])
			}
			return w.Flush()
		},
	}
}

func parseDue(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

func printTasks(out io.Writer, tasks []model.Task) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, t := range tasks {
		mark := "[ ]"
		if t.Completed {
			mark = "[x]"
		}
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Local().Format(time.DateOnly)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, mark, t.Title, due, t.List, strings.Join(t.Tags, ","))
	}
	_ = w.Flush()
}
