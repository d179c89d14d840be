// Package fruits holds the fruit inventory events that feed the outbox.
// The aggregate itself lives elsewhere; this package only describes what it
// raises and buffers those events until the aggregate write commits.
package fruits

import (
	"time"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/clock"
)

// Event type names. They match the concrete event kinds.
const (
	EventTypeCreated = "FruitCreated"
	EventTypeUpdated = "FruitUpdated"
	EventTypeDeleted = "FruitDeleted"
)

// EventTypes returns every fruit event type.
func EventTypes() []string {
	return []string{EventTypeCreated, EventTypeUpdated, EventTypeDeleted}
}

// Snapshot is the fruit state carried inside each event.
type Snapshot struct {
	FruitID                string `json:"fruitId"`
	Name                   string `json:"name"`
	Description            string `json:"description"`
	LimitOfFruitToBeStored int    `json:"limitOfFruitToBeStored"`
	CurrentAmount          int    `json:"currentAmount"`
}

// FruitCreated is raised when a new fruit is stored.
type FruitCreated struct {
	Fruit            Snapshot  `json:"fruit"`
	DateTimeOccurred time.Time `json:"dateTimeOccurred"`
}

// NewFruitCreated stamps the event with the current time.
func NewFruitCreated(fruit Snapshot) FruitCreated {
	return FruitCreated{Fruit: fruit, DateTimeOccurred: clock.Now()}
}

func (e FruitCreated) EventType() string     { return EventTypeCreated }
func (e FruitCreated) AggregateID() string   { return e.Fruit.FruitID }
func (e FruitCreated) OccurredAt() time.Time { return e.DateTimeOccurred }

// FruitUpdated is raised when a fruit's description or limit changes.
type FruitUpdated struct {
	Fruit            Snapshot  `json:"fruit"`
	DateTimeOccurred time.Time `json:"dateTimeOccurred"`
}

// NewFruitUpdated stamps the event with the current time.
func NewFruitUpdated(fruit Snapshot) FruitUpdated {
	return FruitUpdated{Fruit: fruit, DateTimeOccurred: clock.Now()}
}

func (e FruitUpdated) EventType() string     { return EventTypeUpdated }
func (e FruitUpdated) AggregateID() string   { return e.Fruit.FruitID }
func (e FruitUpdated) OccurredAt() time.Time { return e.DateTimeOccurred }

// FruitDeleted is raised when an empty fruit is removed from storage.
type FruitDeleted struct {
	Fruit            Snapshot  `json:"fruit"`
	DateTimeOccurred time.Time `json:"dateTimeOccurred"`
}

// NewFruitDeleted stamps the event with the current time.
func NewFruitDeleted(fruit Snapshot) FruitDeleted {
	return FruitDeleted{Fruit: fruit, DateTimeOccurred: clock.Now()}
}

func (e FruitDeleted) EventType() string     { return EventTypeDeleted }
func (e FruitDeleted) AggregateID() string   { return e.Fruit.FruitID }
func (e FruitDeleted) OccurredAt() time.Time { return e.DateTimeOccurred }
