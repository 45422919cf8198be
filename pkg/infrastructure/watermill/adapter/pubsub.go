package adapter

import (
	"errors"
	"fmt"

	"github.com/Shopify/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const (
	DriverGoChannel = "gochannel"
	DriverKafka     = "kafka"
	DriverRedis     = "redis"
)

type PubSubConfig struct {
	Driver string

	KafkaBrokers       []string
	KafkaConsumerGroup string

	RedisConsumerGroup string
	RedisConsumer      string
}

// PubSub agrupa o publisher e o subscriber de um mesmo transporte.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

func (p PubSub) Close() error {
	return errors.Join(p.Publisher.Close(), p.Subscriber.Close())
}

// NewPubSub monta o transporte escolhido. redisClient só é usado pelo driver redis.
func NewPubSub(cfg PubSubConfig, redisClient redis.UniversalClient, logger watermill.LoggerAdapter) (PubSub, error) {
	switch cfg.Driver {
	case DriverGoChannel, "":
		pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
		return PubSub{Publisher: pubSub, Subscriber: pubSub}, nil
	case DriverKafka:
		return newKafkaPubSub(cfg, logger)
	case DriverRedis:
		return newRedisStreamPubSub(cfg, redisClient, logger)
	default:
		return PubSub{}, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

func newKafkaPubSub(cfg PubSubConfig, logger watermill.LoggerAdapter) (PubSub, error) {
	marshaler := kafka.DefaultMarshaler{}

	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: marshaler,
	}, logger)
	if err != nil {
		return PubSub{}, fmt.Errorf("create kafka publisher: %w", err)
	}

	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Version = sarama.V1_0_0_0
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.ClientID = "train-booking"

	subscriber, err := kafka.NewSubscriber(kafka.SubscriberConfig{
		Brokers:               cfg.KafkaBrokers,
		Unmarshaler:           marshaler,
		ConsumerGroup:         cfg.KafkaConsumerGroup,
		OverwriteSaramaConfig: saramaConfig,
		InitializeTopicDetails: &sarama.TopicDetail{
			NumPartitions:     1,
			ReplicationFactor: 1,
		},
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return PubSub{}, fmt.Errorf("create kafka subscriber: %w", err)
	}

	return PubSub{Publisher: publisher, Subscriber: subscriber}, nil
}

func newRedisStreamPubSub(cfg PubSubConfig, client redis.UniversalClient, logger watermill.LoggerAdapter) (PubSub, error) {
	if client == nil {
		return PubSub{}, errors.New("redis events driver requires a redis client")
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return PubSub{}, fmt.Errorf("create redis stream publisher: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        client,
		ConsumerGroup: cfg.RedisConsumerGroup,
		Consumer:      cfg.RedisConsumer,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return PubSub{}, fmt.Errorf("create redis stream subscriber: %w", err)
	}

	return PubSub{Publisher: publisher, Subscriber: subscriber}, nil
}
