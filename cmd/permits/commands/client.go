package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"rrcpermits-backend/internal/apiclient"
	"rrcpermits-backend/internal/components/telemetry"
	"rrcpermits-backend/lib/util/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	serverUrl  *string
	submitWait *bool
	fetchOut   *string
)

func init() {
	serverUrl = rootCmd.PersistentFlags().String("server", "http://localhost:8000", "The base url of a running permits service.")
	submitWait = submitCmd.Flags().BoolP("wait", "w", false, "Wait for the job to finish.")
	fetchOut = fetchCmd.Flags().StringP("out", "o", "", "Where to write the file, defaults to its base name.")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(fetchCmd)
}

func newClient() apiclient.Client {
	return apiclient.NewClient(*serverUrl, telemetry.SlogAPI{})
}

var submitCmd = &cobra.Command{
	Use:   "submit [--wait]",
	Short: "Starts a scrape on a running service using its configuration.",
	Run: func(cmd *cobra.Command, args []string) {
		client := newClient()
		started, err := client.Submit(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to submit", err)
		}
		fmt.Println(started.JobID)
		if !*submitWait {
			return
		}
		job, err := client.Wait(cmd.Context(), started.JobID, 5*time.Second)
		if err != nil {
			serviceutil.Fatal("failed to wait for job", err)
		}
		fmt.Printf("%s %s %s\n", job.ID, job.Status, job.ResultFile)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <job id>",
	Short: "Shows the status of a job.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		job, err := newClient().Status(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to get status", err)
		}
		out := table.NewWriter()
		out.SetOutputMirror(os.Stdout)
		out.SetStyle(table.StyleLight)
		out.AppendRows([]table.Row{
			{"id", job.ID},
			{"status", job.Status},
			{"counties", job.Config.Counties},
			{"dates", fmt.Sprintf("%s - %s", job.Config.DateRange.From, job.Config.DateRange.To)},
			{"records", job.Records},
			{"result", job.ResultFile},
			{"error", job.Error},
		})
		out.Render()
	},
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Lists the data files of a running service.",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := newClient().Files(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list files", err)
		}
		if res.Message != "" {
			fmt.Println(res.Message)
			return
		}
		for _, f := range res.Files {
			fmt.Println(f)
		}
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <path> [--out <file>]",
	Short: "Downloads a data file from a running service.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dst := *fetchOut
		if dst == "" {
			dst = filepath.Base(args[0])
		}
		f, err := os.Create(dst)
		if err != nil {
			serviceutil.Fatal("failed to create output", err)
		}
		defer f.Close()
		err = newClient().Download(cmd.Context(), args[0], f)
		if err != nil {
			os.Remove(dst)
			serviceutil.Fatal("failed to download", err)
		}
	},
}
