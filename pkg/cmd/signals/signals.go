package signals

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracehud-go/pkg/emitter"
)

func NewSignalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "lists the signals clients may register for",
		RunE: func(cmd *cobra.Command, args []string) error {
			render(cmd.OutOrStdout(), emitter.Signals())
			return nil
		},
	}
}

func render(out io.Writer, infos []emitter.SignalInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Signal", "Ready when", "Forced"})
	for _, info := range infos {
		forced := ""
		if info.Forced {
			forced = "yes"
		}
		t.AppendRow(table.Row{info.Name, info.Readiness.String(), forced})
	}
	t.AppendFooter(table.Row{"", "", len(infos)})
	t.Render()
}
