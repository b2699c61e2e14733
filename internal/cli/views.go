package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"taskdesk/internal/config"
	"taskdesk/internal/models"
	"taskdesk/internal/views"
)

var (
	viewsDate     string
	viewsSearch   string
	viewsCategory int64
)

var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Print the Today, Upcoming and Completed views",
	RunE:  runViews,
}

func init() {
	viewsCmd.Flags().StringVar(&viewsDate, "date", "", "Reference date (YYYY-MM-DD), defaults to today")
	viewsCmd.Flags().StringVarP(&viewsSearch, "search", "s", "", "Only show tasks whose title or description contains this text")
	viewsCmd.Flags().Int64Var(&viewsCategory, "category", 0, "Only show tasks in this category id")
}

func runViews(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	// Latency only matters for interactive clients.
	cfg.Store.SimulateLatency = false
	log := config.NewLogger(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ref := models.DateOf(time.Now().In(loc))
	if viewsDate != "" {
		if ref, err = models.ParseDate(viewsDate); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.store.Close()

	subsets, err := a.page.Snapshot(ctx, ref)
	if err != nil {
		return err
	}

	q := views.Query{Search: viewsSearch}
	if viewsCategory > 0 {
		q.CategoryID = &viewsCategory
	}

	names := make(map[int64]string)
	for _, c := range a.categories.Categories() {
		names[c.ID] = c.Name
	}

	out := cmd.OutOrStdout()
	progress := views.TodayProgress(a.tasks.Tasks(), ref)
	fmt.Fprintf(out, "Today, %s (%d/%d done)\n", ref.Time().Format("Monday, January 2"), progress.Completed, progress.Total)
	printSection(out, "Overdue", views.Filter(subsets[views.KindOverdue], q), names, ref)
	printSection(out, "Today", views.Filter(subsets[views.KindToday], q), names, ref)

	for _, g := range views.Upcoming(views.Filter(subsets[views.KindUpcoming], q), ref) {
		printSection(out, g.Label, g.Tasks, names, ref)
	}

	printSection(out, "Completed", views.Filter(subsets[views.KindCompleted], q), names, ref)
	return nil
}

func printSection(out io.Writer, title string, tasks []models.Task, names map[int64]string, ref models.Date) {
	if len(tasks) == 0 {
		return
	}

	fmt.Fprintf(out, "\n%s\n%s\n", title, strings.Repeat("-", len(title)))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i := range tasks {
		t := &tasks[i]
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(tw, "[%s]\t#%d\t%s\t%s\t%s\t%s\n", mark, t.ID, t.Title, t.Priority, names[t.CategoryID], views.DueLabel(t, ref))
	}
	tw.Flush()
}
