package appServer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ds124wfegd/hotel-booking/config"
	"github.com/ds124wfegd/hotel-booking/internal/entity"
	"github.com/ds124wfegd/hotel-booking/internal/notification"
	"github.com/ds124wfegd/hotel-booking/internal/service"
	"github.com/ds124wfegd/hotel-booking/internal/transport"
	"github.com/ds124wfegd/hotel-booking/internal/worker"
	"github.com/ds124wfegd/hotel-booking/pkg/events"
	"github.com/ds124wfegd/hotel-booking/pkg/mailer"
	"github.com/ds124wfegd/hotel-booking/pkg/queue"
	"github.com/ds124wfegd/hotel-booking/pkg/redis"
	"github.com/ds124wfegd/hotel-booking/pkg/telegram"

	"github.com/sirupsen/logrus"
)

type notifications struct {
	notifier service.Notifier
	// nil unless notifications go through the Redis queue
	monitor transport.QueueMonitor
	closers []func() error
}

func (n *notifications) Close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		if err := n.closers[i](); err != nil {
			logrus.Errorf("Failed to close notification channel: %v", err)
		}
	}
}

// newNotifications assembles the notifier chain:
// email/telegram delivery, optionally behind the Redis queue, plus broker events.
func newNotifications(ctx context.Context, cfg *config.Config) (*notifications, error) {
	n := &notifications{}

	var sinks notification.MultiSink

	deliverer := newDeliverer(cfg)
	if cfg.Redis.Enabled {
		client, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, err
		}

		q := queue.NewRedisQueue(client, queue.RedisQueueConfig{
			Prefix:     cfg.Redis.QueuePrefix,
			MaxRetries: cfg.Worker.MaxRetries,
			BaseDelay:  cfg.Worker.BaseDelay,
			Retryable: func(err error) bool {
				return entity.IsRetryable(err) && !errors.Is(err, worker.ErrMalformedTask)
			},
		})
		n.closers = append(n.closers, q.Close)
		n.monitor = q

		if err := worker.NewNotificationWorker(q, deliverer, cfg.Booking.NotifyTimeout).Start(ctx); err != nil {
			n.Close()
			return nil, err
		}
		var channels []notification.Channel
		if d, ok := deliverer.(*notification.Deliverer); ok {
			channels = d.Channels()
		}
		sinks = append(sinks, notification.NewQueueSink(q, channels...))
		logrus.Info("Notifications are delivered through the Redis queue")
	} else {
		sinks = append(sinks, deliverer)
	}

	publisher, err := newPublisher(cfg.Events)
	if err != nil {
		n.Close()
		return nil, err
	}
	if publisher != nil {
		n.closers = append(n.closers, publisher.Close)
		sinks = append(sinks, notification.NewEventSink(publisher))
	}

	n.notifier = notification.NewNotifier(sinks)
	return n, nil
}

func newDeliverer(cfg *config.Config) notification.Sink {
	var email notification.EmailSender
	if cfg.Email.Enabled {
		email = mailer.NewSender(mailer.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
		logrus.Info("Email notifications enabled")
	}

	var chat notification.ChatSender
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		chat = telegram.NewBot(cfg.Telegram.BotToken)
		logrus.Info("Telegram bot initialized")
	}

	if email == nil && chat == nil {
		logrus.Warn("No notification channel configured, notifications are only logged")
		return notification.LogSink{}
	}
	return notification.NewDeliverer(email, chat, cfg.Telegram.ChatID)
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch strings.ToLower(cfg.Broker) {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		p, err := events.NewRabbitMQPublisher(events.RabbitMQConfig{URL: cfg.RabbitMQ.URL, Queue: cfg.RabbitMQ.Queue})
		if err != nil {
			return nil, err
		}
		logrus.WithField("queue", cfg.RabbitMQ.Queue).Info("Publishing booking events to RabbitMQ")
		return p, nil
	case "kafka":
		logrus.WithField("topic", cfg.Kafka.Topic).Info("Publishing booking events to Kafka")
		return events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic}), nil
	}
	return nil, fmt.Errorf("unknown events broker %q", cfg.Broker)
}
