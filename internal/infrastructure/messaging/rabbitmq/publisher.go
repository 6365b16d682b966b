package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/notes-service/internal/domain"
)

const (
	DefaultExchange = "notes.events"

	// Upper bound for one publish when the caller has no deadline.
	publishTimeout = 2 * time.Second
)

// Publisher hands mail requests to an out-of-process mailer through a topic
// exchange, with publisher confirms and mandatory routing.
type Publisher struct {
	url      string
	exchange string
	lg       zerolog.Logger
	now      func() time.Time

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string, lg zerolog.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{
		url:      url,
		exchange: exchange,
		lg:       lg.With().Str("component", "rabbit_publisher").Logger(),
		now:      time.Now,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// ---- auth.Notifier ----

func (p *Publisher) SendPasscode(ctx context.Context, email, passcode, name string) error {
	return p.publishJSON(ctx, RoutingPasscodeRequested, PasscodeRequestedEvent{
		Email:       email,
		Name:        name,
		Passcode:    passcode,
		RequestedAt: p.now().UTC(),
	})
}

func (p *Publisher) SendWelcome(ctx context.Context, email, name string) error {
	return p.publishJSON(ctx, RoutingWelcomeRequested, WelcomeRequestedEvent{
		Email:       email,
		Name:        name,
		RequestedAt: p.now().UTC(),
	})
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	// Declare topic exchange (idempotent).
	if err := ch.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.ErrDeliveryFailed(fmt.Errorf("marshal payload: %w", err))
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return domain.ErrDeliveryFailed(err)
	}

	// Drain stale confirm / return messages so results don't mix.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    p.now(),
			Body:         body,
		},
	); err != nil {
		p.resetConn()
		return domain.ErrDeliveryFailed(fmt.Errorf("publish failed: %w", err))
	}

	select {
	case ret := <-p.returnCh:
		// no queue bound for this routing key
		return domain.ErrDeliveryFailed(fmt.Errorf(
			"rabbitmq unroutable: key=%s code=%d text=%s",
			routingKey, ret.ReplyCode, ret.ReplyText,
		))

	case conf := <-p.confirmCh:
		// basic.return precedes basic.ack on the wire, so an unroutable
		// message is already buffered by now.
		select {
		case ret := <-p.returnCh:
			return domain.ErrDeliveryFailed(fmt.Errorf(
				"rabbitmq unroutable: key=%s code=%d text=%s",
				routingKey, ret.ReplyCode, ret.ReplyText,
			))
		default:
		}
		if !conf.Ack {
			return domain.ErrDeliveryFailed(fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag))
		}
		p.lg.Debug().Str("routing_key", routingKey).Uint64("delivery_tag", conf.DeliveryTag).Msg("published")
		return nil

	case <-ctx.Done():
		return domain.ErrDeliveryFailed(fmt.Errorf("rabbitmq publish timeout: key=%s: %w", routingKey, ctx.Err()))
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
