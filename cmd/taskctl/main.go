// Command taskctl manages tasks and sticky notes on a taskwall server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hiroki-koketsu/taskwall/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TASKWALL")
	v.AutomaticEnv()
	v.SetDefault("server", "http://localhost:5000")

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage taskwall tasks and sticky notes",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("server", "", "Server base URL (env TASKWALL_SERVER)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (env TASKWALL_TOKEN)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log failed requests to stderr")
	_ = v.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = v.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	e := &env{v: v}
	rootCmd.AddCommand(listCmd(e))
	rootCmd.AddCommand(addCmd(e))
	rootCmd.AddCommand(editCmd(e))
	rootCmd.AddCommand(toggleCmd(e))
	rootCmd.AddCommand(rmCmd(e))
	rootCmd.AddCommand(countsCmd(e))
	rootCmd.AddCommand(notesCmd(e))

	return rootCmd
}

// env resolves connection settings once flags are parsed.
type env struct {
	v *viper.Viper
}

func (e *env) api() (*client.API, error) {
	token := e.v.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("no token: set --token or TASKWALL_TOKEN")
	}
	return client.NewAPI(e.v.GetString("server"), token), nil
}

func (e *env) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelError + 1
	if e.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func (e *env) collection(cmd *cobra.Command) (*client.Collection, error) {
	api, err := e.api()
	if err != nil {
		return nil, err
	}
	c := client.NewCollection(api, e.logger(cmd))
	if err := c.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}

func (e *env) wall(cmd *cobra.Command) (*client.NoteWall, error) {
	api, err := e.api()
	if err != nil {
		return nil, err
	}
	w := client.NewNoteWall(api, e.logger(cmd))
	if err := w.Refresh(cmd.Context()); err != nil {
		return nil, err
	}
	return w, nil
}
