package produce

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Dispatch queue wire contract: one durable direct exchange/queue/routing
// key triple shared by all background jobs, with message priorities 0-10.
const (
	TaskQueue      = "tri"
	TaskExchange   = "tri"
	TaskRoutingKey = "tri"

	TaskMaxPriority = 10
)

// Job names understood by the queue worker.
const (
	PopulateTroveTask = "populate_trove_intel_database"
)

// TaskMessage names a background job for the worker pool. TaskID
// correlates the message with the ScannerTask record the worker must
// report back to.
type TaskMessage struct {
	Name       string `json:"name"`
	TaskID     string `json:"task_id"`
	Priority   uint8  `json:"priority"`
	RetryCount int    `json:"retry_count"`
	Timestamp  int64  `json:"timestamp"`
}

type TaskProduceService struct {
	channel *amqp.Channel
}

// InitTaskProduceService declares the task exchange/queue pair and binds
// them. Declarations are idempotent, so both the API process and the
// worker pool run this on startup.
func InitTaskProduceService(channel *amqp.Channel) *TaskProduceService {
	err := channel.ExchangeDeclare(
		TaskExchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Task exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		TaskQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-max-priority": int32(TaskMaxPriority),
		},
	)
	if err != nil {
		panic("Failed to declare Task queue: " + err.Error())
	}

	err = channel.QueueBind(
		TaskQueue,
		TaskRoutingKey,
		TaskExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Task queue: " + err.Error())
	}

	return &TaskProduceService{channel: channel}
}

// PublishTask puts a job message on the dispatch queue. Messages are
// persistent so they survive a broker restart.
func (s *TaskProduceService) PublishTask(ctx context.Context, msg TaskMessage) error {
	msg.Timestamp = time.Now().Unix()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return s.channel.PublishWithContext(
		ctx,
		TaskExchange,
		TaskRoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Priority:     msg.Priority,
		},
	)
}
