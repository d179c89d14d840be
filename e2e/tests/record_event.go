package tests

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cornjacket/fruit-storage/e2e/client"
	"github.com/cornjacket/fruit-storage/e2e/runner"
)

func init() {
	runner.Register(&runner.Test{
		Name:        "record-event",
		Description: "Record a FruitCreated event and wait for the processor to deliver it",
		Run:         runRecordEventTest,
	})
}

func runRecordEventTest(ctx context.Context, cfg *runner.Config) error {
	c := cfg.Client()

	// Generate unique aggregate ID for test isolation
	fruitID := client.UniqueID("e2e-fruit")

	// 1. Record a FruitCreated event
	resp, err := client.IngestEvent(ctx, c, &client.IngestRequest{
		EventType:   "FruitCreated",
		AggregateID: fruitID,
		Payload: map[string]any{
			"fruit": map[string]any{
				"fruitId":                fruitID,
				"name":                   "lemon",
				"description":            "this is a lemon",
				"limitOfFruitToBeStored": 10,
				"currentAmount":          0,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	if resp.Status != "accepted" {
		return fmt.Errorf("expected status 'accepted', got '%s'", resp.Status)
	}
	if resp.EventID == "" {
		return fmt.Errorf("expected non-empty event_id")
	}

	// 2. The record is visible immediately, before any pass runs
	if _, err := client.GetRecord(ctx, c, resp.EventID); err != nil {
		return fmt.Errorf("record not readable after ingest: %w", err)
	}

	// 3. Wait for the processor to mark it processed
	record, err := client.WaitForState(ctx, c, resp.EventID, "processed")
	if err != nil {
		return err
	}

	// 4. Verify the stored record
	if !record.Processed || record.ProcessedAt == nil {
		return fmt.Errorf("expected processed record with processed_at, got processed=%v processed_at=%v",
			record.Processed, record.ProcessedAt)
	}
	if record.RetryCount != 0 {
		return fmt.Errorf("expected retry_count 0, got %d", record.RetryCount)
	}
	if record.AggregateID != fruitID {
		return fmt.Errorf("expected aggregate_id %s, got %s", fruitID, record.AggregateID)
	}

	var payload struct {
		Fruit struct {
			Name string `json:"name"`
		} `json:"fruit"`
	}
	if err := json.Unmarshal(record.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Fruit.Name != "lemon" {
		return fmt.Errorf("expected fruit name 'lemon', got %q", payload.Fruit.Name)
	}

	return nil
}
