package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/entity"
	"github.com/trintel/tri-api/infra"
	"github.com/trintel/tri-api/infra/produce"
	"github.com/trintel/tri-api/repository"
)

// errUnknownTask marks a message naming a job this worker has no handler
// for. Retrying cannot fix it, so it is failed outright.
var errUnknownTask = errors.New("unknown task name")

// taskPublisher puts retry republishes back on the dispatch queue.
type taskPublisher interface {
	PublishTask(ctx context.Context, msg produce.TaskMessage) error
}

type taskHandler func(ctx context.Context) error

// TaskConsumer drains the dispatch queue. Each message is acknowledged
// only after its handler returns, so an interrupted worker leaves the
// message on the broker for redelivery.
type TaskConsumer struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository

	publisher taskPublisher
	handlers  map[string]taskHandler
}

func NewTaskConsumer(cfg *config.Config, infra *infra.Infra, repo *repository.Repository) *TaskConsumer {
	tc := &TaskConsumer{
		Config:     cfg,
		Infra:      infra,
		Repository: repo,
		publisher:  infra.Produce.TaskService,
	}
	tc.handlers = map[string]taskHandler{
		produce.PopulateTroveTask: tc.populateTroveDatabase,
	}
	return tc
}

// Start runs one consumer goroutine per configured concurrency slot, each
// on its own channel with prefetch 1, and blocks until ctx is cancelled.
// If a later slot fails to come up, the slots already running are torn
// down before the error is returned.
func (tc *TaskConsumer) Start(ctx context.Context) error {
	concurrency := tc.Config.EnvConfig.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	teardown := func(err error) error {
		cancel()
		wg.Wait()
		return err
	}

	for i := 0; i < concurrency; i++ {
		ch, err := tc.Infra.RabbitMQ.Conn.Channel()
		if err != nil {
			return teardown(fmt.Errorf("open consumer channel: %w", err))
		}
		if err := ch.Qos(1, 0, false); err != nil {
			ch.Close()
			return teardown(fmt.Errorf("set channel prefetch: %w", err))
		}

		msgs, err := ch.Consume(
			produce.TaskQueue,
			fmt.Sprintf("tri-worker-%d", i),
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,
		)
		if err != nil {
			ch.Close()
			return teardown(fmt.Errorf("start consuming: %w", err))
		}

		wg.Add(1)
		go func(slot int, ch *amqp.Channel, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			defer ch.Close()
			tc.consumeLoop(ctx, slot, msgs)
		}(i, ch, msgs)
	}

	tc.Infra.Logger.InfoWithContextf(ctx, "Task consumer started with %d slots", concurrency)
	wg.Wait()
	return nil
}

func (tc *TaskConsumer) consumeLoop(ctx context.Context, slot int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			tc.handleDelivery(ctx, slot, d)
		}
	}
}

func (tc *TaskConsumer) handleDelivery(ctx context.Context, slot int, d amqp.Delivery) {
	var msg produce.TaskMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		tc.Infra.Logger.ErrorWithContextf(ctx, err, "Slot %d: dropping undecodable message", slot)
		_ = d.Ack(false)
		return
	}

	tc.Infra.Logger.InfoWithContextf(ctx, "Slot %d: running %s (task %s, attempt %d)", slot, msg.Name, msg.TaskID, msg.RetryCount+1)

	err := tc.runTask(ctx, msg)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	if ctx.Err() != nil {
		// shutting down, hand the message back to the broker
		_ = d.Nack(false, true)
		return
	}

	if errors.Is(err, errUnknownTask) {
		tc.Infra.Logger.ErrorWithContextf(ctx, err, "Slot %d: task %s names no known job", slot, msg.TaskID)
		tc.markTask(ctx, msg.TaskID, entity.StatusFailed, err.Error())
		_ = d.Ack(false)
		return
	}

	if msg.RetryCount < tc.Config.EnvConfig.Worker.MaxRetries {
		tc.Infra.Logger.WarningWithContextf(ctx, "Slot %d: %s (task %s) failed, retry %d/%d in %s: %v",
			slot, msg.Name, msg.TaskID, msg.RetryCount+1, tc.Config.EnvConfig.Worker.MaxRetries,
			tc.Config.EnvConfig.Worker.RetryDelay, err)

		select {
		case <-ctx.Done():
			_ = d.Nack(false, true)
			return
		case <-time.After(tc.Config.EnvConfig.Worker.RetryDelay):
		}

		msg.RetryCount++
		if pubErr := tc.publisher.PublishTask(ctx, msg); pubErr != nil {
			tc.Infra.Logger.ErrorWithContextf(ctx, pubErr, "Slot %d: failed to requeue task %s", slot, msg.TaskID)
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
		return
	}

	tc.Infra.Logger.ErrorWithContextf(ctx, err, "Slot %d: %s (task %s) exhausted retries", slot, msg.Name, msg.TaskID)
	tc.markTask(ctx, msg.TaskID, entity.StatusFailed, err.Error())
	_ = d.Ack(false)
}

// runTask executes the named job under the hard time limit, warning when
// the soft limit passes.
func (tc *TaskConsumer) runTask(ctx context.Context, msg produce.TaskMessage) error {
	taskCtx, cancel := context.WithTimeout(ctx, tc.Config.EnvConfig.Worker.HardTimeLimit)
	defer cancel()

	softTimer := time.AfterFunc(tc.Config.EnvConfig.Worker.SoftTimeLimit, func() {
		tc.Infra.Logger.WarningWithContextf(ctx, "Task %s exceeded soft time limit of %s",
			msg.TaskID, tc.Config.EnvConfig.Worker.SoftTimeLimit)
	})
	defer softTimer.Stop()

	handler, ok := tc.handlers[msg.Name]
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownTask, msg.Name)
	}

	tc.markTask(taskCtx, msg.TaskID, entity.StatusInProgress, "")

	if err := handler(taskCtx); err != nil {
		return err
	}

	tc.markTask(ctx, msg.TaskID, entity.StatusCompleted, "")
	return nil
}

// markTask records a lifecycle transition on the task row. The queue, not
// the row, is the source of truth for execution, so failures here are
// logged and swallowed.
func (tc *TaskConsumer) markTask(ctx context.Context, taskID, status, statusMessage string) {
	if taskID == "" {
		return
	}
	task, err := tc.Repository.TaskRepo.FindByID(ctx, taskID)
	if err != nil {
		tc.Infra.Logger.WarningWithContextf(ctx, "Cannot load task %s to mark %s: %v", taskID, status, err)
		return
	}
	task.Status = status
	task.StatusMessage = statusMessage
	if err := tc.Repository.TaskRepo.Update(ctx, task); err != nil {
		tc.Infra.Logger.WarningWithContextf(ctx, "Cannot mark task %s as %s: %v", taskID, status, err)
	}
}
