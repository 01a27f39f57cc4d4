package service

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"
    "github.com/sony/gobreaker"

    "github.com/iliyamo/room-reservation/internal/queue"
)

// EventPublisher hands reservation events to the broker.  Publishing is
// best effort: the ledger logs failures and never rolls back a committed
// reservation because of them.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.ReservationEvent) error { return nil }

// AMQPPublisher publishes persistent JSON messages to queue.ReservationQueue
// on the default exchange.  The connection is dialed lazily and re-dialed
// after failures; a circuit breaker stops hammering a broker that is down.
type AMQPPublisher struct {
    url string
    cb  *gobreaker.CircuitBreaker
    log *logrus.Entry

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewAMQPPublisher returns a publisher for url.  After five consecutive
// failures the breaker opens for 30 seconds and Publish fails fast.
func NewAMQPPublisher(url string, log *logrus.Entry) *AMQPPublisher {
    p := &AMQPPublisher{url: url, log: log}
    p.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
        Name:        "amqp-publisher",
        MaxRequests: 1,
        Timeout:     30 * time.Second,
        ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
        OnStateChange: func(name string, from, to gobreaker.State) {
            log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
                Warn("circuit breaker state changed")
        },
    })
    return p
}

// Publish sends ev, dialing the broker first if needed.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    _, err = p.cb.Execute(func() (interface{}, error) {
        return nil, p.publish(ctx, body)
    })
    return err
}

func (p *AMQPPublisher) publish(ctx context.Context, body []byte) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.ensureChannel(ctx); err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := p.ch.PublishWithContext(ctx, "", queue.ReservationQueue, false, false, pub); err != nil {
        p.reset()
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// maxDialTimeout caps the TCP connect and AMQP handshake when the caller
// has no deadline.
const maxDialTimeout = 5 * time.Second

func (p *AMQPPublisher) ensureChannel(ctx context.Context) error {
    if p.ch != nil && !p.ch.IsClosed() {
        return nil
    }
    p.reset()
    timeout := maxDialTimeout
    if dl, ok := ctx.Deadline(); ok {
        timeout = time.Until(dl)
    }
    if timeout <= 0 {
        return fmt.Errorf("dial: %w", context.DeadlineExceeded)
    }
    if timeout > maxDialTimeout {
        timeout = maxDialTimeout
    }
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("channel open: %w", err)
    }
    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(queue.ReservationQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return nil
}

func (p *AMQPPublisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
