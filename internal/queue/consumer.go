package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-ticketing/internal/logger"
)

const auditLogFile = "funciones.log"

// StartAuditConsumer consumes seat events from queue and appends one
// human-readable line per event to <dir>/funciones.log.  It reconnects with
// exponential backoff and returns only when ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url, queue, dir string) error {
	log := logger.Get().With("component", "audit-consumer")
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("failed to dial broker", "error", err, "retry_in", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, queue, dir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("consume loop ended; reconnecting", "error", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue, dir string) error {
	log := logger.Get().With("component", "audit-consumer")
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "channel open")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return errors.Wrap(err, "queue declare")
	}
	msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "queue consume")
	}

	for d := range msgs {
		if err := handleMessage(dir, d.Body); err != nil {
			log.Error("handle message failed", "error", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func handleMessage(dir string, body []byte) error {
	var ev SeatEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Wrap(err, "unmarshal")
	}
	if ev.Type == "" || ev.ShowtimeID == "" {
		return errors.Newf("incomplete seat event %q", ev.EventID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir logs")
	}
	f, err := os.OpenFile(filepath.Join(dir, auditLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return errors.Wrap(err, "write log")
	}
	return nil
}

func formatLine(ev SeatEvent) string {
	action := "Seats reserved"
	if ev.Type == SeatsCancelled {
		action = "Seats cancelled"
	}
	user := ev.UserID
	if user == "" {
		user = "anon"
	}
	return fmt.Sprintf("[%s] %s | event_id=%s | showtime_id=%s | room_id=%s | user_id=%s | seats=[%s]\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), action, ev.EventID, ev.ShowtimeID, ev.RoomID, user, strings.Join(ev.Seats, ","))
}
