package produce

import amqp "github.com/rabbitmq/amqp091-go"

type Produce struct {
	TaskService *TaskProduceService
}

func InitProduce(channel *amqp.Channel) *Produce {
	taskService := InitTaskProduceService(channel)
	if taskService == nil {
		panic("Failed to initialize Task produce service")
	}

	return &Produce{
		TaskService: taskService,
	}
}
