package realtime

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/brandlover88/brandlover-backend/internal/catalog"
	"github.com/brandlover88/brandlover-backend/internal/models"
)

// Channel carries product change events between instances.
const Channel = "products:changes"

// Event is one product table change, mirroring the shape the storefront
// subscribes to: INSERT/UPDATE carry the new row, DELETE the old one.
type Event struct {
	Event string          `json:"event"` // INSERT | UPDATE | DELETE
	New   *models.Product `json:"new,omitempty"`
	Old   *models.Product `json:"old,omitempty"`
}

// Feed implements catalog.EventPublisher. Committed changes are published to
// Redis; the subscriber side replays every event (including this instance's
// own) into the cache and out to the websocket clients. The cache reducer is
// idempotent by id, so the direct flow update and the replay never conflict.
type Feed struct {
	rdb   *redis.Client
	hub   *Hub
	cache *catalog.Cache
}

func NewFeed(rdb *redis.Client, hub *Hub, cache *catalog.Cache) *Feed {
	return &Feed{rdb: rdb, hub: hub, cache: cache}
}

func (f *Feed) ProductInserted(p models.Product) { f.publish(Event{Event: "INSERT", New: &p}) }
func (f *Feed) ProductUpdated(p models.Product)  { f.publish(Event{Event: "UPDATE", New: &p}) }
func (f *Feed) ProductDeleted(p models.Product)  { f.publish(Event{Event: "DELETE", Old: &p}) }

func (f *Feed) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("marshal product event: %v", err)
		return
	}
	if err := f.rdb.Publish(context.Background(), Channel, payload).Err(); err != nil {
		log.Printf("publish product event: %v", err)
		// Redis down: fan out locally so connected clients still hear it.
		f.apply(ev)
	}
}

// Run subscribes to the event channel and replays events until ctx ends.
// Meant to run as a goroutine from main.
func (f *Feed) Run(ctx context.Context) {
	sub := f.rdb.Subscribe(ctx, Channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("decode product event: %v", err)
				continue
			}
			f.apply(ev)
		}
	}
}

func (f *Feed) apply(ev Event) {
	switch ev.Event {
	case "INSERT", "UPDATE":
		if ev.New != nil {
			f.cache.Upsert(*ev.New)
		}
	case "DELETE":
		if ev.Old != nil {
			f.cache.Remove(ev.Old.ID)
		}
	}
	f.hub.BroadcastJSON(ev)
}
