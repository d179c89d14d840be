package tests

import (
	"context"
	"errors"
	"fmt"

	"github.com/cornjacket/fruit-storage/e2e/client"
	"github.com/cornjacket/fruit-storage/e2e/runner"
)

func init() {
	runner.Register(&runner.Test{
		Name:        "list-records",
		Description: "List records by state and page through results",
		Run:         runListRecordsTest,
	})
}

func runListRecordsTest(ctx context.Context, cfg *runner.Config) error {
	c := cfg.Client()

	// 1. Record a few events so the listing is non-empty
	ids := make([]string, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := client.IngestEvent(ctx, c, &client.IngestRequest{
			EventType:   "FruitUpdated",
			AggregateID: client.UniqueID("e2e-fruit"),
			Payload:     map[string]any{"fruit": map[string]any{"name": "apple", "currentAmount": i}},
		})
		if err != nil {
			return fmt.Errorf("failed to record event %d: %w", i, err)
		}
		ids = append(ids, resp.EventID)
	}

	// 2. Page size is honored
	page, err := client.ListRecords(ctx, c, "", 2, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}
	if page.Limit != 2 || len(page.Records) > 2 {
		return fmt.Errorf("expected at most 2 records with limit 2, got %d (limit %d)", len(page.Records), page.Limit)
	}
	if page.Total < len(ids) {
		return fmt.Errorf("expected total >= %d, got %d", len(ids), page.Total)
	}

	// 3. Once processed, the records show up under state=processed
	for _, id := range ids {
		if _, err := client.WaitForState(ctx, c, id, "processed"); err != nil {
			return err
		}
	}
	processed, err := client.ListRecords(ctx, c, "processed", 100, 0)
	if err != nil {
		return fmt.Errorf("failed to list processed records: %w", err)
	}
	for _, r := range processed.Records {
		if r.State != "processed" {
			return fmt.Errorf("record %s listed as processed has state %s", r.ID, r.State)
		}
	}

	// 4. Unknown state and unknown id are rejected
	if _, err := client.ListRecords(ctx, c, "failed", 10, 0); err == nil {
		return fmt.Errorf("expected an error for unknown state")
	}
	if _, err := client.GetRecord(ctx, c, "0190f3a4-0000-7000-8000-000000000000"); !errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("expected not found for unknown id, got %v", err)
	}

	return nil
}
