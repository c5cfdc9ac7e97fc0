package commands

import (
	"os"

	"rrcpermits-backend/internal/scrapers/rrc"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(countiesCmd)
}

var countiesCmd = &cobra.Command{
	Use:   "counties",
	Short: "Lists the counties that can be searched and their form codes.",
	Run: func(cmd *cobra.Command, args []string) {
		out := table.NewWriter()
		out.SetOutputMirror(os.Stdout)
		out.SetStyle(table.StyleLight)
		out.AppendHeader(table.Row{"County", "Code"})
		for _, c := range rrc.Counties() {
			out.AppendRow(table.Row{c.Name, c.Code})
		}
		out.Render()
	},
}
