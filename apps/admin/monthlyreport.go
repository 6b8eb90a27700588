package main

import (
	"context"
	"fmt"

	"github.com/trezcool/shule/core/report"
)

// monthlyReport sends the absence reports of month right away; re-running it sends them again.
func (cli *commandLine) monthlyReport(month string) error {
	asOf, err := report.ParseMonth(month)
	if err != nil {
		return err
	}
	if err = cli.monthly.Run(context.Background(), asOf); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "monthly absence report sent for %s\n", asOf.Format(report.MonthLayout))
	return nil
}
