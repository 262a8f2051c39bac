package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/bank-ledger/internal/domain"
)

const RoutingKeyTransferCompleted = "transfer.completed"

type TransferCompleted struct {
	Reference         string              `json:"reference"`
	SenderAccountID   uuid.UUID           `json:"sender_account_id"`
	ReceiverAccountID uuid.UUID           `json:"receiver_account_id"`
	Amount            decimal.Decimal     `json:"amount"`
	Kind              domain.TransferKind `json:"kind"`
	CompletedAt       time.Time           `json:"completed_at"`
}

func NewTransferCompleted(t *domain.Transfer) TransferCompleted {
	e := TransferCompleted{
		Reference:         t.Reference,
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		Amount:            t.Amount,
		Kind:              t.Kind,
	}
	if t.CompletedAt != nil {
		e.CompletedAt = *t.CompletedAt
	}
	return e
}

type Publisher interface {
	PublishTransferCompleted(ctx context.Context, event TransferCompleted) error
	Close()
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransferCompleted(ctx context.Context, event TransferCompleted) error {
	slog.Debug("event publish skipped, no broker configured", "reference", event.Reference)
	return nil
}

func (NoopPublisher) Close() {}

type AMQPPublisher struct {
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPPublisher(rawURL, exchange string) (*AMQPPublisher, error) {
	cleanURL, err := validateAMQPURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("NewAMQPPublisher: %w", err)
	}

	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("NewAMQPPublisher: dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("NewAMQPPublisher: channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("NewAMQPPublisher: declare exchange: %w", err)
	}

	return &AMQPPublisher{exchange: exchange, conn: conn, channel: ch}, nil
}

func (p *AMQPPublisher) PublishTransferCompleted(ctx context.Context, event TransferCompleted) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("PublishTransferCompleted: marshal: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.Reference,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyTransferCompleted, false, false, msg)
	if err == nil {
		return nil
	}

	// The channel is unusable after a server-side error; reopen once.
	ch, chErr := p.conn.Channel()
	if chErr != nil {
		return fmt.Errorf("PublishTransferCompleted: %w", errors.Join(err, chErr))
	}
	p.channel.Close()
	p.channel = ch

	if err := p.channel.PublishWithContext(ctx, p.exchange, RoutingKeyTransferCompleted, false, false, msg); err != nil {
		return fmt.Errorf("PublishTransferCompleted: retry: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func validateAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), `"'`)
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP URL scheme must be amqp or amqps")
	}
	return clean, nil
}
