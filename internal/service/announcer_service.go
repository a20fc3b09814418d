package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

// Publisher delivers a payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// AnnouncerService publishes the next prayer of a countdown engine whenever
// its target changes.
type AnnouncerService struct {
	engine    *CountdownEngine
	publisher Publisher
	prefix    string
	clock     Clock
	logger    *zap.Logger

	mu   sync.Mutex
	last string
}

// NewAnnouncerService wires an announcer to engine.
func NewAnnouncerService(engine *CountdownEngine, publisher Publisher, topicPrefix string, clock Clock, logger *zap.Logger) *AnnouncerService {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncerService{
		engine:    engine,
		publisher: publisher,
		prefix:    strings.Trim(topicPrefix, "/"),
		clock:     clock,
		logger:    logger,
	}
}

// Topic is where announcements for cityID are published.
func (a *AnnouncerService) Topic(cityID string) string {
	return fmt.Sprintf("%s/%s/next", a.prefix, cityID)
}

// Run drives the engine until ctx is done, publishing on every target change.
func (a *AnnouncerService) Run(ctx context.Context) error {
	unsubscribe := a.engine.OnChange(a.handle)
	defer unsubscribe()
	return a.engine.Run(ctx)
}

func (a *AnnouncerService) handle(state models.CountdownState) {
	if state.Next == nil {
		return
	}
	cityID := state.Location.Location.ID
	key := cityID + "|" + state.Next.Key + "|" + state.Next.TargetAt.UTC().Format("2006-01-02T15:04:05Z")

	a.mu.Lock()
	if key == a.last {
		a.mu.Unlock()
		return
	}
	a.last = key
	a.mu.Unlock()

	payload, err := json.Marshal(models.Announcement{
		CityID:   cityID,
		Lokasi:   state.Location.Location.Lokasi,
		Timezone: state.Location.Timezone.Label,
		Next:     state.Next,
		SentAt:   a.clock.Now().UTC(),
	})
	if err != nil {
		a.logger.Error("encode announcement", zap.Error(err))
		return
	}
	topic := a.Topic(cityID)
	if err := a.publisher.Publish(topic, payload); err != nil {
		a.logger.Warn("announcement not published", zap.String("topic", topic), zap.Error(err))
		a.mu.Lock()
		a.last = ""
		a.mu.Unlock()
		return
	}
	a.logger.Info("next prayer announced", zap.String("topic", topic), zap.String("prayer", state.Next.Key))
}
