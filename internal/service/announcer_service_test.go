package service

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/jadwal-sholat/internal/models"
)

type message struct {
	Topic   string
	Payload []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, message{topic, payload})
	return nil
}

func (f *fakePublisher) Messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.messages...)
}

func TestAnnouncerPublishesOnTargetChange(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 11, 50, 0, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")},
	}}
	engine := newTestEngine(src, clock)
	pub := &fakePublisher{}
	announcer := NewAnnouncerService(engine, pub, "/jadwal-sholat/", clock, nil)
	unsubscribe := engine.OnChange(announcer.handle)
	defer unsubscribe()

	engine.CoarseTick()
	engine.Wait()
	require.Len(t, pub.Messages(), 1)

	clock.Advance(time.Second)
	engine.FineTick()
	engine.CoarseTick()
	assert.Len(t, pub.Messages(), 1, "same target must not be republished")

	clock.Advance(10 * time.Minute)
	engine.CoarseTick()
	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "jadwal-sholat/jkt/next", msgs[1].Topic)

	var got models.Announcement
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &got))
	assert.Equal(t, "jkt", got.CityID)
	assert.Equal(t, models.TimezoneWIB, got.Timezone)
	require.NotNil(t, got.Next)
	assert.Equal(t, "ashar", got.Next.Key)
}

func TestAnnouncerRetriesAfterPublishFailure(t *testing.T) {
	clock := &fakeClock{now: localAt("2025-04-10", 11, 50, 0, 7)}
	src := &fakeScheduleSource{days: map[string][]models.ScheduleDay{
		ScheduleKey("jkt", 2025, 4): {fullDay("2025-04-10")},
	}}
	engine := newTestEngine(src, clock)
	pub := &fakePublisher{err: errors.New("not connected")}
	announcer := NewAnnouncerService(engine, pub, "sholat", clock, nil)
	engine.OnChange(announcer.handle)

	engine.CoarseTick()
	engine.Wait()
	assert.Empty(t, pub.Messages())

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	engine.CoarseTick()
	assert.Len(t, pub.Messages(), 1)
}
