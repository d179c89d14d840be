package tests

import (
	"context"
	"fmt"

	"github.com/cornjacket/fruit-storage/e2e/client"
	"github.com/cornjacket/fruit-storage/e2e/runner"
)

func init() {
	runner.Register(&runner.Test{
		Name:        "unsubscribed-event",
		Description: "An event type with no handlers is still marked processed",
		Run:         runUnsubscribedEventTest,
	})
}

func runUnsubscribedEventTest(ctx context.Context, cfg *runner.Config) error {
	c := cfg.Client()

	resp, err := client.IngestEvent(ctx, c, &client.IngestRequest{
		EventType:   client.UniqueID("E2EUnsubscribed"),
		AggregateID: client.UniqueID("e2e-aggregate"),
		Payload:     map[string]any{"note": "nobody listens"},
	})
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}

	record, err := client.WaitForState(ctx, c, resp.EventID, "processed")
	if err != nil {
		return err
	}
	if record.RetryCount != 0 {
		return fmt.Errorf("expected retry_count 0, got %d", record.RetryCount)
	}

	return nil
}
