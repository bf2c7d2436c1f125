package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nimishchaudhari/aider-resolver/internal/budget"
)

func newBudgetCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Show budget status and recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := budget.OpenStore(cfg.Workspace.DataPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			used, err := store.UsedSince(startOfDay())
			if err != nil {
				return fmt.Errorf("read usage: %w", err)
			}

			fmt.Println()
			fmt.Println("💰 Budget Status")
			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			fmt.Printf("   Daily limit:       $%.2f\n", cfg.Budget.DailyLimit)
			fmt.Printf("   Used today:        $%.4f\n", used)
			fmt.Printf("   Remaining:         $%.4f\n", cfg.Budget.DailyLimit-used)
			fmt.Printf("   Per-operation cap: $%.2f\n", cfg.Budget.PerOperationCap)
			fmt.Println()

			jobs, err := store.RecentJobs(limit)
			if err != nil {
				return fmt.Errorf("read jobs: %w", err)
			}
			if len(jobs) == 0 {
				fmt.Println("   No jobs recorded yet.")
				return nil
			}

			fmt.Println("Recent jobs:")
			for _, j := range jobs {
				status := "✓"
				if !j.Success {
					status = "✗"
				}
				fmt.Printf("   %s %s  %-20s $%.4f  %.0fs  %s\n",
					status, j.JobID, j.ModelUsed, j.CostUsed, j.ElapsedSeconds,
					j.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of recent jobs to show")
	return cmd
}
