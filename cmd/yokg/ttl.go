package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xqvvu/yokg/internal/infrastructure/cache"
)

func newTTLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ttl QUANTITY UNIT",
		Short: "Resolve a semantic TTL to seconds",
		Long: `Resolves a TTL such as "3 months" to seconds, counted from now.
Units: seconds, minutes, hours, days, months, seasons, years.`,
		Example: "  yokg ttl 5 minutes\n  yokg ttl 1 month",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quantity, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("quantity must be an integer: %q", args[0])
			}
			unit, err := cache.ParseUnit(args[1])
			if err != nil {
				return err
			}

			calc := cache.NewTTLCalculator(nil)
			seconds, err := calc.Raw(quantity, unit)
			if err != nil {
				return err
			}
			duration, err := calc.Duration(quantity, unit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", seconds, duration)
			return nil
		},
	}
}
