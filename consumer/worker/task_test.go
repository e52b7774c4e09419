package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/entity"
	"github.com/trintel/tri-api/infra"
	"github.com/trintel/tri-api/infra/produce"
	"github.com/trintel/tri-api/repository"
)

type fakeAcknowledger struct {
	mu       sync.Mutex
	acks     int
	nacks    int
	requeued bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks++
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []produce.TaskMessage
	err       error
}

func (f *fakePublisher) PublishTask(ctx context.Context, msg produce.TaskMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

// fakeTaskStore records every status transition a delivery drives.
type fakeTaskStore struct {
	mu       sync.Mutex
	tasks    map[string]*entity.ScannerTask
	statuses []string
}

func newFakeTaskStore(tasks ...*entity.ScannerTask) *fakeTaskStore {
	s := &fakeTaskStore{tasks: map[string]*entity.ScannerTask{}}
	for _, t := range tasks {
		clone := *t
		s.tasks[t.ID] = &clone
	}
	return s
}

func (f *fakeTaskStore) Create(ctx context.Context, task *entity.ScannerTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *task
	f.tasks[task.ID] = &clone
	return nil
}

func (f *fakeTaskStore) FindByID(ctx context.Context, id string) (*entity.ScannerTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tasks[id]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTaskStore) Find(ctx context.Context, filter repository.TaskFilter, skip, limit int) ([]entity.ScannerTask, error) {
	return nil, nil
}

func (f *fakeTaskStore) Count(ctx context.Context, filter repository.TaskFilter) (int64, error) {
	return 0, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *entity.ScannerTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *task
	f.tasks[task.ID] = &clone
	f.statuses = append(f.statuses, task.Status)
	return nil
}

const testJobName = "refresh"

func newTestConsumer(t *testing.T, store *fakeTaskStore, pub *fakePublisher, handler taskHandler) *TaskConsumer {
	t.Helper()

	envCfg := &config.EnvConfig{}
	envCfg.Worker.Concurrency = 1
	envCfg.Worker.HardTimeLimit = 5 * time.Second
	envCfg.Worker.SoftTimeLimit = 4 * time.Second
	envCfg.Worker.MaxRetries = 3
	envCfg.Worker.RetryDelay = time.Millisecond

	return &TaskConsumer{
		Config:     &config.Config{EnvConfig: envCfg},
		Infra:      &infra.Infra{Logger: infra.InitLoggerClient(envCfg)},
		Repository: &repository.Repository{TaskRepo: store},
		publisher:  pub,
		handlers:   map[string]taskHandler{testJobName: handler},
	}
}

func makeDelivery(t *testing.T, ack *fakeAcknowledger, msg produce.TaskMessage) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestHandleDeliveryAcksAfterSuccess(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion, Status: entity.StatusScheduled}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return nil })

	ack := &fakeAcknowledger{}
	tc.handleDelivery(context.Background(), 0, makeDelivery(t, ack, produce.TaskMessage{Name: testJobName, TaskID: task.ID}))

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	assert.Empty(t, pub.published)
	assert.Equal(t, []string{entity.StatusInProgress, entity.StatusCompleted}, store.statuses)
}

func TestHandleDeliveryRepublishesWithRetryCount(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return errors.New("upstream down") })

	ack := &fakeAcknowledger{}
	tc.handleDelivery(context.Background(), 0, makeDelivery(t, ack, produce.TaskMessage{Name: testJobName, TaskID: task.ID, Priority: 7}))

	// original message is acked only after the replacement is on the queue
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)

	require.Len(t, pub.published, 1)
	assert.Equal(t, testJobName, pub.published[0].Name)
	assert.Equal(t, task.ID, pub.published[0].TaskID)
	assert.Equal(t, 1, pub.published[0].RetryCount)
	assert.EqualValues(t, 7, pub.published[0].Priority)

	// the record is not failed while retries remain
	assert.Equal(t, []string{entity.StatusInProgress}, store.statuses)
}

func TestHandleDeliveryFailsTaskAfterRetryExhaustion(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return errors.New("still broken") })

	ack := &fakeAcknowledger{}
	msg := produce.TaskMessage{Name: testJobName, TaskID: task.ID, RetryCount: tc.Config.EnvConfig.Worker.MaxRetries}
	tc.handleDelivery(context.Background(), 0, makeDelivery(t, ack, msg))

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, pub.published)

	stored, err := store.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, stored.Status)
	assert.Contains(t, stored.StatusMessage, "still broken")
}

func TestHandleDeliveryFailsUnknownJobWithoutRetry(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return nil })

	ack := &fakeAcknowledger{}
	tc.handleDelivery(context.Background(), 0, makeDelivery(t, ack, produce.TaskMessage{Name: "defrag_disks", TaskID: task.ID}))

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, pub.published)

	stored, err := store.FindByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFailed, stored.Status)
}

func TestHandleDeliveryNacksOnShutdown(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ack := &fakeAcknowledger{}
	tc.handleDelivery(ctx, 0, makeDelivery(t, ack, produce.TaskMessage{Name: testJobName, TaskID: task.ID}))

	// the message goes back to the broker, not to the retry path
	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued)
	assert.Empty(t, pub.published)
}

func TestHandleDeliveryNacksWhenRepublishFails(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{err: errors.New("broker gone")}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return errors.New("boom") })

	ack := &fakeAcknowledger{}
	tc.handleDelivery(context.Background(), 0, makeDelivery(t, ack, produce.TaskMessage{Name: testJobName, TaskID: task.ID}))

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeued)
}

func TestHandleDeliveryDropsUndecodableMessage(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return nil })

	ack := &fakeAcknowledger{}
	tc.handleDelivery(context.Background(), 0, amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	assert.Equal(t, 1, ack.acks)
	assert.Empty(t, pub.published)
	assert.Empty(t, store.statuses)
}

func TestConsumeLoopDrainsAndStops(t *testing.T) {
	t.Parallel()

	task := &entity.ScannerTask{ID: entity.NewTaskID(), Scanner: entity.ScannerIngestion}
	store := newFakeTaskStore(task)
	pub := &fakePublisher{}
	tc := newTestConsumer(t, store, pub, func(ctx context.Context) error { return nil })

	ack := &fakeAcknowledger{}
	msgs := make(chan amqp.Delivery, 1)
	msgs <- makeDelivery(t, ack, produce.TaskMessage{Name: testJobName, TaskID: task.ID})
	close(msgs)

	done := make(chan struct{})
	go func() {
		tc.consumeLoop(context.Background(), 0, msgs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume loop did not stop on closed delivery channel")
	}
	assert.Equal(t, 1, ack.acks)
}

func TestConsumeLoopStopsOnCancel(t *testing.T) {
	t.Parallel()

	tc := newTestConsumer(t, newFakeTaskStore(), &fakePublisher{}, func(ctx context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan amqp.Delivery)

	done := make(chan struct{})
	go func() {
		tc.consumeLoop(ctx, 0, msgs)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume loop did not stop on context cancel")
	}
}
