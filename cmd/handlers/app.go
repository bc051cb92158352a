package handlers

import (
	"context"
	"fmt"
	"newsroom/internal/config"
	"newsroom/internal/delivery"
	"newsroom/internal/llm"
	"newsroom/internal/persistence"
	"newsroom/internal/pipeline"
	"time"
)

// openDatabase connects to the configured database and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, migrate bool) (*persistence.SQLDB, error) {
	db, err := persistence.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w\n\n"+
			"Set database.dsn in .newsroom.yaml or the DATABASE_URL environment variable.", err)
	}
	if migrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}
	return db, nil
}

func newPipeline(ctx context.Context, cfg *config.Config, db persistence.Repositories) (*pipeline.Pipeline, error) {
	client, err := llm.NewClient(ctx, llm.Config{
		APIKey:  cfg.AI.Gemini.APIKey,
		Model:   cfg.AI.Gemini.Model,
		Timeout: config.Duration(cfg.AI.Gemini.Timeout, llm.DefaultTimeout),
	})
	if err != nil {
		return nil, err
	}

	p, err := pipeline.NewBuilder(cfg).
		WithDatabase(db).
		WithGenerator(client).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	return p, nil
}

// newTransport selects the configured email transport.
func newTransport(cfg *config.Config) (delivery.Transport, error) {
	timeout := config.Duration(cfg.Delivery.Timeout, 15*time.Second)

	switch cfg.Delivery.Transport {
	case "resend":
		return delivery.NewResendTransport(delivery.ResendConfig{
			APIKey:   cfg.Delivery.Resend.APIKey,
			BaseURL:  cfg.Delivery.Resend.BaseURL,
			From:     cfg.Delivery.FromAddress,
			FromName: cfg.Delivery.FromName,
			Timeout:  timeout,
		}), nil
	case "smtp", "":
		if cfg.Delivery.SMTP.Host == "" {
			return nil, fmt.Errorf("SMTP host is not configured. Set delivery.smtp.host or SMTP_HOST")
		}
		return delivery.NewSMTPTransport(delivery.SMTPConfig{
			Host:     cfg.Delivery.SMTP.Host,
			Port:     cfg.Delivery.SMTP.Port,
			Username: cfg.Delivery.SMTP.Username,
			Password: cfg.Delivery.SMTP.Password,
			From:     cfg.Delivery.FromAddress,
			FromName: cfg.Delivery.FromName,
			Timeout:  timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown delivery transport: %s", cfg.Delivery.Transport)
	}
}

func newDeliverer(cfg *config.Config) (*delivery.Deliverer, error) {
	transport, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return delivery.NewDeliverer(transport), nil
}
