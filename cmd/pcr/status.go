package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zulandar/pcremote/internal/config"
	"github.com/zulandar/pcremote/internal/statusapi"
)

func newStatusCmd() *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the running agent's status",
		Long:  "Queries the status listener of a running `pcr start` for uptime, conversations and scheduled tasks.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultFile, "path to PC Remote config file")
	cmd.Flags().StringVar(&addr, "addr", "", "status listener address (overrides http.listen)")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath, addr string) error {
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.HTTP.Listen == "" {
			return fmt.Errorf("http.listen is not set in %s; the status listener is disabled", configPath)
		}
		addr = cfg.HTTP.Listen
	}

	client, err := statusapi.NewClient(addr, nil)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	st, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("agent not reachable at %s: %w", addr, err)
	}
	tasks, err := client.Tasks(ctx)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), st, tasks)
	return nil
}

func printStatus(out io.Writer, st *statusapi.StatusView, tasks []statusapi.TaskView) {
	fmt.Fprintf(out, "PC Remote: RUNNING (version %s)\n", st.Version)
	fmt.Fprintf(out, "Started:   %s (up %s)\n", st.StartedAt.Local().Format("02.01.2006 15:04:05"),
		(time.Duration(st.UptimeSeconds) * time.Second).String())
	if s := st.LastSample; s != nil {
		fmt.Fprintf(out, "Load:      CPU %.1f%%, RAM %.1f%%\n", s.CPU, s.RAM)
	}
	fmt.Fprintf(out, "Conversations: %d\n", st.Conversations)

	if len(st.States) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Principal", "Awaiting", "Path", "Locked", "Last Activity"})
		for _, s := range st.States {
			awaiting := s.Awaiting
			if awaiting == "" {
				awaiting = "-"
			}
			t.AppendRow(table.Row{s.Principal, awaiting, s.CurrentPath, s.IsLocked, s.LastActivity.Local().Format(time.DateTime)})
		}
		t.Render()
	}

	fmt.Fprintf(out, "\nScheduled tasks: %d\n", len(tasks))
	if len(tasks) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Kind", "Schedule", "Command", "Runs", "Next Run"})
	for _, task := range tasks {
		schedule := task.CronSpec
		if task.IntervalMinutes > 0 {
			schedule = fmt.Sprintf("every %dm", task.IntervalMinutes)
		}
		next := "-"
		if task.NextRunAt != nil {
			next = task.NextRunAt.Local().Format(time.DateTime)
		}
		t.AppendRow(table.Row{task.ID, task.Kind, schedule, task.Command, task.RunCount, next})
	}
	t.Render()
}
