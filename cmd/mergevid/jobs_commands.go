package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

const (
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage merge jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your merge jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			jobs, err := client.listJobs(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No merge jobs yet")
				return nil
			}

			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(jobs))
			for _, job := range jobs {
				rows = append(rows, []string{
					job.ID,
					job.Name,
					formatStatus(job.Status, colorize),
					job.CreatedAt.Local().Format("2006-01-02 15:04"),
					summarizeError(job.ErrorMessage),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Name", "Status", "Created", "Error"}, rows))
			return nil
		},
	}
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its clips",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			job, err := client.getJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			pairs := [][2]string{
				{"ID", job.ID},
				{"Name", job.Name},
				{"Status", formatStatus(job.Status, colorize)},
				{"Created", job.CreatedAt.Local().Format("2006-01-02 15:04:05")},
				{"Updated", job.UpdatedAt.Local().Format("2006-01-02 15:04:05")},
			}
			if job.ErrorMessage != "" {
				pairs = append(pairs, [2]string{"Error", job.ErrorMessage})
			}
			if job.HasOutput {
				pairs = append(pairs, [2]string{"Download", job.OutputURL})
			}
			fmt.Fprintln(out, renderKeyValues(pairs))

			if len(job.Clips) > 0 {
				rows := make([][]string, 0, len(job.Clips))
				for _, clip := range job.Clips {
					rows = append(rows, []string{fmt.Sprintf("%d", clip.Position), clip.OriginalName})
				}
				fmt.Fprintln(out, renderTable([]string{"#", "Clip"}, rows, 0))
			}
			return nil
		},
	}
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id>",
		Short: "Re-enqueue a job for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			taskID, err := client.retryJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s enqueued (task %s)\n", args[0], taskID)
			return nil
		},
	}
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "submit <clip> [clip...]",
		Short: "Upload clips as a new merge job",
		Long:  "Uploads the given video files in argument order and starts merging them.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			resp, err := client.submitJob(cmd.Context(), name, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created job %s with %d clips (task %s)\n",
				resp.Job.ID, len(args), resp.TaskID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Job name")
	return cmd
}

func formatStatus(status string, colorize bool) string {
	if !colorize {
		return status
	}
	switch status {
	case "completed":
		return ansiGreen + status + ansiReset
	case "failed":
		return ansiRed + status + ansiReset
	case "running":
		return ansiYellow + status + ansiReset
	default:
		return status
	}
}

func summarizeError(message string) string {
	message = strings.TrimSpace(message)
	if len(message) > 48 {
		return message[:45] + "..."
	}
	return message
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
