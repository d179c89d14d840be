//go:build integration || component

package testutil

import (
	"fmt"
	"os"
	"strings"
	"testing"
	"time"
)

const defaultBrokers = "localhost:9092"

// TestBrokers returns the Redpanda broker addresses for integration tests.
// Override with INTEGRATION_REDPANDA_BROKERS environment variable.
func TestBrokers() []string {
	brokers := os.Getenv("INTEGRATION_REDPANDA_BROKERS")
	if brokers == "" {
		brokers = defaultBrokers
	}
	return strings.Split(brokers, ",")
}

var topicSanitizer = strings.NewReplacer("/", "-", " ", "-", "_", "-")

// TestTopicName returns a topic name unique to the calling test.
func TestTopicName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("fruitstore-test-%s-%d", strings.ToLower(topicSanitizer.Replace(t.Name())), time.Now().UnixNano())
}
