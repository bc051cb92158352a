package handlers

import (
	"context"
	"fmt"
	"newsroom/internal/config"
	"newsroom/internal/core"
	"newsroom/internal/persistence"
	"newsroom/internal/schedule"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// NewScheduleCmd creates the schedule command group
func NewScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled newsletter deliveries",
		Long: `Manage scheduled newsletter deliveries.

Subcommands:
  run   Generate and deliver every schedule that is due now
  add   Create a schedule for a user

Run 'newsroom schedule run' from cron, or use 'newsroom serve --scheduler'
to run due schedules on an interval.`,
	}

	cmd.AddCommand(newScheduleRunCmd())
	cmd.AddCommand(newScheduleAddCmd())

	return cmd
}

func newScheduleRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Deliver every due schedule once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleRun(cmd.Context())
		},
	}
}

func newScheduleAddCmd() *cobra.Command {
	var (
		userID    int64
		recipient string
		frequency string
		start     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a delivery schedule",
		Long: `Create a delivery schedule for a user.

Frequency is one of once, daily, weekly or monthly. The first run defaults
to now; pass --start with an RFC 3339 timestamp to delay it.

Example:
  newsroom schedule add --user 1 --to reader@example.com --frequency weekly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleAdd(cmd.Context(), userID, recipient, frequency, start)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID (required)")
	cmd.Flags().StringVar(&recipient, "to", "", "Recipient email address (required)")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.FrequencyWeekly), "once, daily, weekly or monthly")
	cmd.Flags().StringVar(&start, "start", "", "First run time in RFC 3339 (default now)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func newScheduleRunner(ctx context.Context, cfg *config.Config, db persistence.Database) (*schedule.Runner, error) {
	p, err := newPipeline(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	deliverer, err := newDeliverer(cfg)
	if err != nil {
		return nil, err
	}
	runner := schedule.NewRunner(db, p, deliverer).
		WithPassTimeout(config.Duration(cfg.Schedule.PassTimeout, schedule.DefaultPassTimeout))
	return runner, nil
}

func runScheduleRun(ctx context.Context) error {
	cfg := config.Get()
	db, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := newScheduleRunner(ctx, cfg, db)
	if err != nil {
		return err
	}

	summary, err := runner.RunDue(ctx)
	fmt.Fprintf(os.Stderr, "%s %s\n", titleStyle.Render("Schedules"),
		valueStyle.Render(fmt.Sprintf("due %d, delivered %d, failed %d, skipped %d", summary.Due, summary.Delivered, summary.Failed, summary.Skipped)))
	return err
}

func parseFrequency(value string) (core.Frequency, error) {
	f := core.Frequency(strings.ToLower(strings.TrimSpace(value)))
	switch f {
	case core.FrequencyOnce, core.FrequencyDaily, core.FrequencyWeekly, core.FrequencyMonthly:
		return f, nil
	default:
		return "", fmt.Errorf("unknown frequency %q: use once, daily, weekly or monthly", value)
	}
}

func runScheduleAdd(ctx context.Context, userID int64, recipient, frequency, start string) error {
	freq, err := parseFrequency(frequency)
	if err != nil {
		return err
	}
	if userID <= 0 {
		return fmt.Errorf("--user must be a positive id")
	}
	if !strings.Contains(recipient, "@") {
		return fmt.Errorf("invalid recipient address: %q", recipient)
	}

	nextRun := time.Now()
	if start != "" {
		nextRun, err = time.Parse(time.RFC3339, start)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}

	cfg := config.Get()
	db, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	s := &core.Schedule{
		UserID:    userID,
		Recipient: recipient,
		Frequency: freq,
		NextRun:   nextRun,
		Active:    true,
	}
	if err := db.Schedules().Create(ctx, s); err != nil {
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	fmt.Fprintf(os.Stderr, "%s %d (%s, next run %s)\n", okStyle.Render("Created schedule"), s.ID, s.Frequency, s.NextRun.Format(time.RFC1123))
	return nil
}
