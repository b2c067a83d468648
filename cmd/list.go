package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/st-keller/employee-client/pager"
)

// NewListCommand returns the command printing one page of employees.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of employees",
		Long:  "Print one page of employees, resolved by following links from the API root.",
		RunE:  list,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Int("page", 1, "the page to print, starting at 1")
	return cmd
}

func list(cmd *cobra.Command, _ []string) error {
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return err
	}
	if page < 1 {
		return fmt.Errorf("--page must be >= 1, got %d", page)
	}

	c, logger, err := newClient()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := c.LoadPage(cmd.Context(), viper.GetInt(pageSizeConf), page-1); err != nil {
		return err
	}
	printPage(cmd.OutOrStdout(), c.State())
	return nil
}

func printPage(w io.Writer, s *pager.State) {
	fmt.Fprintf(w, "Employees - Page %d of %d\n", s.Page.Number+1, s.Page.TotalPages)
	if len(s.Employees) == 0 {
		fmt.Fprintln(w, "No employees on this page.")
		return
	}

	headers := append([]string{"href"}, s.Attributes...)
	rows := make([][]string, 0, len(s.Employees))
	for _, e := range s.Employees {
		row := []string{e.Href}
		for _, a := range s.Attributes {
			row = append(row, e.Get(a))
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d employees, page size %d\n", s.Page.TotalElements, s.PageSize)
}
