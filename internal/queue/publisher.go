package queue

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes domain events to RabbitMQ.  Errors are logged and
// returned so callers can ignore failures without interrupting the main
// request flow.
type Publisher struct {
    url    string
    logger *slog.Logger
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
    if logger == nil {
        logger = slog.Default()
    }
    return &Publisher{url: url, logger: logger}
}

// PublishContentPublished publishes ev to the content.published queue.
// Messages are marked as persistent.
func (p *Publisher) PublishContentPublished(ctx context.Context, ev ContentPublishedEvent) error {
    return p.publish(ctx, ContentPublishedQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.logger.Warn("rabbitmq: dial failed", "queue", queueName, "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.logger.Warn("rabbitmq: channel open failed", "queue", queueName, "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        queueName, // name
        true,      // durable
        false,     // autoDelete
        false,     // exclusive
        false,     // noWait
        nil,       // args
    ); err != nil {
        p.logger.Warn("rabbitmq: queue declare failed", "queue", queueName, "error", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        p.logger.Warn("rabbitmq: marshal event failed", "queue", queueName, "error", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",        // default exchange
        queueName, // routing key = queue name
        false,     // mandatory
        false,     // immediate
        pub,
    ); err != nil {
        p.logger.Warn("rabbitmq: publish failed", "queue", queueName, "error", err)
        return err
    }
    return nil
}
