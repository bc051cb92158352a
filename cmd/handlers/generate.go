package handlers

import (
	"context"
	"fmt"
	"newsroom/internal/config"
	"newsroom/internal/delivery"
	"newsroom/internal/render"
	"os"

	"github.com/spf13/cobra"
)

// NewGenerateCmd creates the generate command
func NewGenerateCmd() *cobra.Command {
	var (
		userID     int64
		outputPath string
		sendTo     string
		printHTML  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a newsletter for one user",
		Long: `Run the full curation pipeline for a user once.

The pipeline loads the user's topics and their active sources, aggregates
recent articles, fetches trend feeds, samples the user's writing style and
asks Gemini for a structured newsletter, then renders it to HTML.

Examples:
  # Generate and save to a file
  newsroom generate --user 1 --output digests/latest.html

  # Generate and email it right away
  newsroom generate --user 1 --send-to reader@example.com

  # Print the HTML to stdout
  newsroom generate --user 1 --print`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), userID, outputPath, sendTo, printHTML)
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "User ID to generate the newsletter for (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the rendered HTML to this file")
	cmd.Flags().StringVar(&sendTo, "send-to", "", "Deliver the newsletter to this email address")
	cmd.Flags().BoolVar(&printHTML, "print", false, "Print the rendered HTML to stdout")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runGenerate(ctx context.Context, userID int64, outputPath, sendTo string, printHTML bool) error {
	if userID <= 0 {
		return fmt.Errorf("--user must be a positive id")
	}

	cfg := config.Get()
	db, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := newPipeline(ctx, cfg, db)
	if err != nil {
		return err
	}

	newsletter, err := p.Generate(ctx, userID)
	if err != nil {
		return err
	}

	if outputPath != "" {
		if _, err := render.WriteHTMLFile(newsletter.HTML, outputPath); err != nil {
			return err
		}
	}

	fmt.Fprintln(os.Stderr, renderSummary(newsletter, outputPath))

	if printHTML {
		fmt.Println(newsletter.HTML)
	}

	if sendTo == "" {
		return nil
	}

	deliverer, err := newDeliverer(cfg)
	if err != nil {
		return err
	}
	entry, err := deliverer.Deliver(ctx, delivery.Message{
		UserID:    userID,
		Recipient: sendTo,
		Subject:   newsletter.Subject,
		HTML:      newsletter.HTML,
	}, db.DeliveryLogs())
	if err != nil {
		return fmt.Errorf("delivery to %s failed: %w", sendTo, err)
	}

	fmt.Fprintln(os.Stderr, okStyle.Render(fmt.Sprintf("Delivered to %s (log %s)", sendTo, entry.ID)))
	return nil
}
