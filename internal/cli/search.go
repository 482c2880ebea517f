package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/countrymap/pkg/colorscale"
	"github.com/matzehuels/countrymap/pkg/countries"
	"github.com/matzehuels/countrymap/pkg/errors"
)

// searchCommand creates the search command.
func (c *CLI) searchCommand() *cobra.Command {
	var (
		metrics string
		noCache bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "List countries whose name contains QUERY",
		Long: `List the metric records whose country name contains QUERY, ignoring case,
in document order. Each row shows the fill the country gets on the map.`,
		Example: `  countrymap search fin
  countrymap search "united" --metrics https://example.com/country_requests_data.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := errors.ValidateQuery(args[0]); err != nil {
				return err
			}
			source := c.Config.Metrics
			if cmd.Flags().Changed("metrics") {
				source = metrics
			}
			return c.runSearch(cmd.Context(), args[0], source, noCache, refresh)
		},
	}

	cmd.Flags().StringVar(&metrics, "metrics", "", "metrics document path or URL")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the document cache")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "refetch the document even if cached")
	return cmd
}

func (c *CLI) runSearch(ctx context.Context, query, source string, noCache, refresh bool) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	opts := c.Config.PipelineOptions()
	data, doc, err := runner.Loader.Dataset(ctx, source, refresh, nil, opts.ScaleOptions()...)
	if err != nil {
		return err
	}
	loggerFromContext(ctx).Debug("searched", "source", source, "cached", doc.Cached)

	results := countries.Filter(query, data.Metrics)
	if len(results) == 0 {
		printInfo("No countries match %q", query)
		return nil
	}

	fmt.Println(searchTable(results, data.Scale))
	printDetail("%s of %d match %q", plural(len(results), "record"), len(data.Metrics), query)
	printNextStep("Render with these highlighted", fmt.Sprintf("countrymap render --query %q", query))
	return nil
}

// searchTable renders results as a table with each country's fill.
func searchTable(results []countries.Metric, scale *colorscale.Scale) string {
	rows := make([][]string, 0, len(results))
	for _, m := range results {
		rows = append(rows, []string{
			swatch(scale.FillFor(m, true)),
			m.CountryName,
			m.CountryCode,
			m.Requests,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Country", "Code", "Requests").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 3:
				return StyleNumber.Align(lipgloss.Right)
			case col == 2:
				return StyleDim
			}
			return StyleValue
		}).
		Render()
}
