package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
)

// ErrBadEvent marks a message that can never be processed: it is not JSON
// or lacks the event type or reservation ID.
var ErrBadEvent = errors.New("bad event")

// AuditWriter appends one line per reservation event to a log file.
type AuditWriter struct {
    Path string

    mu sync.Mutex
}

// HandleMessage decodes body and appends it to the audit file.
func (w *AuditWriter) HandleMessage(body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("%w: unmarshal: %v", ErrBadEvent, err)
    }
    if ev.Type == "" || ev.ReservationID == 0 {
        return fmt.Errorf("%w: incomplete event", ErrBadEvent)
    }
    return w.Write(ev)
}

// Write appends ev to the audit file, creating its directory if needed.
func (w *AuditWriter) Write(ev ReservationEvent) error {
    w.mu.Lock()
    defer w.mu.Unlock()
    if err := os.MkdirAll(filepath.Dir(w.Path), 0o755); err != nil {
        return fmt.Errorf("mkdir: %w", err)
    }
    f, err := os.OpenFile(w.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open audit file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] %s | reservation_id=%d | room_id=%d | guest_id=%d | actor_id=%d | window=%s..%s | status=%s\n",
        ev.OccurredAt, ev.Type, ev.ReservationID, ev.RoomID, ev.GuestID, ev.ActorID, ev.CheckIn, ev.CheckOut, ev.Status)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write audit: %w", err)
    }
    return nil
}

// Consumer reads ReservationQueue and feeds every delivery to an
// AuditWriter.
type Consumer struct {
    URL    string
    Writer *AuditWriter
    Log    *logrus.Entry

    // RetryDelay pauses consumption after a requeued message.  Zero means
    // one second.
    RetryDelay time.Duration
}

// Run connects to the broker and consumes until ctx is done, reconnecting
// with exponential backoff (capped at 30s) whenever the connection drops.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.WithError(err).Warnf("dial broker failed; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.WithError(err).Warn("set QoS failed")
    }
    if _, err := ch.QueueDeclare(ReservationQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(ReservationQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if requeued := c.handle(d); requeued && !sleep(ctx, c.retryDelay()) {
                return ctx.Err()
            }
        }
    }
}

// handle acknowledges d once it is written.  Bad events are dropped; any
// other failure puts the message back and reports true.
func (c *Consumer) handle(d amqp.Delivery) bool {
    err := c.Writer.HandleMessage(d.Body)
    if err == nil {
        _ = d.Ack(false)
        return false
    }
    if errors.Is(err, ErrBadEvent) {
        c.Log.WithError(err).Error("dropping undecodable message")
        _ = d.Nack(false, false)
        return false
    }
    c.Log.WithError(err).Warn("audit write failed; requeueing")
    _ = d.Nack(false, true)
    return true
}

func (c *Consumer) retryDelay() time.Duration {
    if c.RetryDelay > 0 {
        return c.RetryDelay
    }
    return time.Second
}

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
