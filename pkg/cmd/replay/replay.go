package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/iracehud-go/log"
	"github.com/mpapenbr/iracehud-go/pkg/cmd/util"
	"github.com/mpapenbr/iracehud-go/pkg/emitter"
	"github.com/mpapenbr/iracehud-go/pkg/model"
	"github.com/mpapenbr/iracehud-go/pkg/processing"
	"github.com/mpapenbr/iracehud-go/pkg/service/telemetry"
	"github.com/mpapenbr/iracehud-go/pkg/source/file"
)

var (
	speed         float64
	slowTickEvery int
	maxLapTimes   int
	showSignals   bool
)

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "feeds a recorded sample file through the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replay(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64Var(&speed, "speed", 0,
		"Recording speed (0 means: go as fast as possible)")
	cmd.Flags().IntVar(&slowTickEvery, "slow-tick-every",
		telemetry.DefaultSlowTickEvery,
		"every n-th tick processes slow changing values")
	cmd.Flags().IntVar(&maxLapTimes, "max-lap-times",
		model.DefaultMaxLapTimes,
		"number of lap times kept for the player")
	cmd.Flags().BoolVar(&showSignals, "show-signals", false,
		"print the number of published values per signal")
	return cmd
}

// counter counts the published values per signal
type counter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *counter) Publish(event string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[event]++
}

func replay(ctx context.Context, name string, out io.Writer) error {
	if _, err := util.SetupLogger(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	src, err := file.Open(name, file.WithSpeed(speed))
	if err != nil {
		return err
	}
	defer src.Close()

	cnt := &counter{counts: map[string]int{}}
	engine := emitter.NewEngine(cnt, emitter.WithMaxLapTimes(maxLapTimes))
	for _, sig := range emitter.Signals() {
		if err := engine.Register(sig.Name); err != nil {
			return err
		}
	}
	ticks := 0
	svc := telemetry.New(src,
		processing.NewProcessor(processing.WithMaxLapTimes(maxLapTimes)),
		engine,
		telemetry.WithTickInterval(0),
		telemetry.WithSlowTickEvery(slowTickEvery),
		telemetry.WithAfterTick(func(*model.SessionState) { ticks++ }))
	if err := svc.Run(ctx); err != nil {
		return err
	}
	log.Info("replay done", log.String("file", name), log.Int("ticks", ticks))

	s := svc.State()
	fmt.Fprintf(out, "%s: %s samples, %s drivers, SoF %s\n",
		s.SessionType, humanize.Comma(int64(ticks)),
		humanize.Comma(int64(len(s.DriverPositions))),
		humanize.Comma(int64(s.StrengthOfField)))
	renderStandings(out, s)
	if showSignals {
		renderCounts(out, cnt.counts)
	}
	return nil
}

func renderStandings(out io.Writer, s *model.SessionState) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pos", "Class", "#", "Driver", "Laps", "Best", "Last", "Gap", "iR"})
	for _, id := range s.DriverPositions {
		d, ok := s.Drivers[id]
		if !ok {
			continue
		}
		gap := ""
		switch {
		case d.IsLeader:
		case d.LeaderGapLaps != 0:
			gap = fmt.Sprintf("+%d L", abs(d.LeaderGapLaps))
		default:
			gap = fmt.Sprintf("+%.1f", d.LeaderGap.AbsSeconds())
		}
		t.AppendRow(table.Row{
			humanize.Ordinal(int(d.Position)),
			humanize.Ordinal(int(d.ClassPosition)),
			d.CarNumber,
			d.UserName,
			d.LapsCompleted,
			emitter.FormatLapTime(d.BestLapTime),
			emitter.FormatLapTime(d.LastLapTime),
			gap,
			emitter.FormatIRating(d.IRating),
		})
	}
	t.Render()
}

func renderCounts(out io.Writer, counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Signal", "Published"})
	total := 0
	for _, name := range names {
		t.AppendRow(table.Row{name, humanize.Comma(int64(counts[name]))})
		total += counts[name]
	}
	t.AppendFooter(table.Row{"total", humanize.Comma(int64(total))})
	t.Render()
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
