package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer listens to the content.published queue and appends one
// structured line per event to <LogDir>/content.log.
type Consumer struct {
    URL    string
    LogDir string
    Logger *slog.Logger

    mu sync.Mutex // serialises writes to the log file
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes
// messages until ctx is cancelled.  It runs a reconnect loop with
// exponential backoff; processing errors are logged and the offending
// message is rejected so the server continues operating.
func (c *Consumer) Run(ctx context.Context) error {
    logger := c.logger()
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            logger.Warn("content-consumer: failed to dial broker", "error", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        logger.Warn("content-consumer: consume loop ended; reconnecting", "error", err)
        // Sleep briefly before reconnect
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.logger().Warn("content-consumer: set QoS failed", "error", err)
    }

    if _, err := ch.QueueDeclare(ContentPublishedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.ConsumeWithContext(ctx, ContentPublishedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := c.HandleMessage(d.Body); err != nil {
            c.logger().Error("content-consumer: handle message failed", "error", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// HandleMessage decodes one delivery and appends it to the log file.
func (c *Consumer) HandleMessage(body []byte) error {
    var ev ContentPublishedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.ContentID == "" {
        return errors.New("event without content_id")
    }

    dir := c.LogDir
    if dir == "" {
        dir = "logs"
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    // Ensure logs directory exists
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "content.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatLine renders an event as a single human-friendly log line.
func FormatLine(ev ContentPublishedEvent) string {
    return fmt.Sprintf("[%s] Content published | content_id=%s | kind=%s | author_id=%s | actor_id=%s | slug=%s | title=%q\n",
        ev.PublishedAt, ev.ContentID, ev.Kind, ev.AuthorID, ev.ActorID, ev.Slug, ev.Title)
}

func (c *Consumer) logger() *slog.Logger {
    if c.Logger != nil {
        return c.Logger
    }
    return slog.Default()
}

// sleep waits for d or until ctx is done; false means ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
