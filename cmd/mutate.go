package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	employees "github.com/st-keller/employee-client"
	"github.com/st-keller/employee-client/cmd/util"
	"github.com/st-keller/employee-client/pager"
)

const setFlag = "set"

// NewCreateCommand returns the command adding an employee.
func NewCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Add an employee",
		Example: "employeectl create --set firstName=Frodo --set lastName=Baggins --set description='ring bearer'",
		RunE:    create,
		Args:    cobra.NoArgs,
	}
	cmd.Flags().StringToString(setFlag, nil, "an attribute as name=value (repeatable)")
	return cmd
}

// NewUpdateCommand returns the command changing attributes of an employee.
func NewUpdateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <href>",
		Short: "Change attributes of an employee",
		Long: `Change attributes of an employee. Attributes not given keep their values.

The update is sent with the ETag the record was read with; if someone else
changed the record in between, the server rejects it and nothing is changed.`,
		RunE: updateEmployee,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringToString(setFlag, nil, "an attribute as name=value (repeatable)")
	return cmd
}

// NewDeleteCommand returns the command removing an employee.
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <href>",
		Short: "Remove an employee",
		RunE:  deleteEmployee,
		Args:  cobra.ExactArgs(1),
	}
}

func setValues(cmd *cobra.Command) (map[string]string, error) {
	values, err := cmd.Flags().GetStringToString(setFlag)
	if err != nil {
		return nil, err
	}
	if err := util.RequireValues(values); err != nil {
		return nil, err
	}
	return values, nil
}

func create(cmd *cobra.Command, _ []string) error {
	values, err := setValues(cmd)
	if err != nil {
		return err
	}

	c, logger, err := newClient()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// the first page carries the schema used to check attribute names
	if err := c.Load(cmd.Context(), viper.GetInt(pageSizeConf)); err != nil {
		return err
	}
	href, err := c.Create(cmd.Context(), values)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", href)
	return nil
}

func updateEmployee(cmd *cobra.Command, args []string) error {
	values, err := setValues(cmd)
	if err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	c, logger, err := newClient(employees.WithNotifier(func(msg string) {
		fmt.Fprintln(errOut, msg)
	}))
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := c.Load(cmd.Context(), viper.GetInt(pageSizeConf)); err != nil {
		return err
	}
	emp, err := c.Employee(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := c.Update(cmd.Context(), emp, values); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "updated %s (%s)\n", emp.Href, describe(values))
	return nil
}

func deleteEmployee(cmd *cobra.Command, args []string) error {
	c, logger, err := newClient()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := c.Delete(cmd.Context(), pager.Employee{Href: args[0]}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
	return nil
}

func describe(values map[string]string) string {
	parts := make([]string, 0, len(values))
	for _, k := range util.SortedKeys(values) {
		parts = append(parts, fmt.Sprintf("%s=%q", k, values[k]))
	}
	return strings.Join(parts, ", ")
}
