package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/infrastructure/amp"
	"amp-whale-tracker/internal/infrastructure/config"
	"amp-whale-tracker/internal/infrastructure/logger"
)

// doctor probes the query endpoint and prints a short sample of whale
// transfers, so a misconfigured deployment fails loudly before the
// dashboard ever renders an empty page.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("FAIL: could not load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger("error", "console")
	if err != nil {
		fmt.Printf("FAIL: could not create logger: %v\n", err)
		os.Exit(1)
	}

	client := amp.NewClient(&cfg.Amp, log)
	builder := amp.NewQueryBuilder(cfg.Amp.Dataset)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Printf("Endpoint:  %s\n", cfg.Amp.EndpointURL)
	fmt.Printf("Dataset:   %s\n", cfg.Amp.Dataset)
	fmt.Printf("Threshold: %s\n\n", entity.FormatEth(cfg.Query.MinEth))

	if err := client.Ping(ctx); err != nil {
		fmt.Printf("FAIL: endpoint unreachable: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK: endpoint reachable")

	countQuery, err := builder.WhaleCountQuery(cfg.Query.MinEth)
	if err != nil {
		fmt.Printf("FAIL: %v\n", err)
		os.Exit(1)
	}
	countTable, err := client.Execute(ctx, countQuery)
	if err != nil {
		fmt.Printf("FAIL: count query failed: %v\n", err)
		os.Exit(1)
	}
	if len(countTable.Rows) > 0 {
		fmt.Printf("OK: %v whale transfers on record\n", countTable.Rows[0]["whale_count"])
	}

	repo := amp.NewTransferRepository(client, builder, log)
	transfers, err := repo.WhaleTransfers(ctx, entity.QueryParams{
		MinEth:      cfg.Query.MinEth,
		WindowHours: cfg.Query.WindowHours,
		Limit:       10,
	})
	if err != nil {
		fmt.Printf("FAIL: transfer query failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: transfer query returned %d rows\n\n", len(transfers))
	for _, t := range transfers {
		fmt.Printf("  %s  %s -> %s  %12s\n",
			t.BlockTimestamp.Format("2006-01-02 15:04:05"),
			entity.ShortenAddress(t.FromAddress),
			entity.ShortenAddress(t.ToAddress),
			entity.FormatEth(t.EthAmount))
	}
}
