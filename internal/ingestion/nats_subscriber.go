package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATSSubscriber subscribes to NATS JetStream subjects and feeds operations
// into the deterministic core via the opChan.
// NATS JetStream is the primary high-throughput submission surface. Each
// subject maps to an operation type.
type NATSSubscriber struct {
	js        jetstream.JetStream
	opChan    chan<- RawOperation
	consumers []jetstream.ConsumeContext
}

// RawOperation is the parsed-but-untyped operation from NATS, ready for the
// shell to validate and convert into a typed op.Operation before sending to
// the core.
type RawOperation struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	AckFunc   func() // Call to ACK the NATS message after successful processing
	NakFunc   func() // Call to NAK on failure (will be redelivered)
}

// SubjectConfig maps NATS subjects to operation types.
// Each operation type has its own subject for independent scaling.
type SubjectConfig struct {
	Subject      string
	OpType       string
	ConsumerName string
	StreamName   string
}

// DefaultSubjects returns the standard subject configuration.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "launch.ops.token.create.>", OpType: "CreateToken", ConsumerName: "launch-token-create", StreamName: "LAUNCH_TOKEN_OPS"},
		{Subject: "launch.ops.trade.buy.>", OpType: "Buy", ConsumerName: "launch-trade-buy", StreamName: "LAUNCH_TRADE_OPS"},
		{Subject: "launch.ops.trade.sell.>", OpType: "Sell", ConsumerName: "launch-trade-sell", StreamName: "LAUNCH_TRADE_OPS"},
		{Subject: "launch.ops.config.update", OpType: "UpdateConfig", ConsumerName: "launch-config-update", StreamName: "LAUNCH_CONFIG_OPS"},
		{Subject: "launch.ops.competition.create.>", OpType: "CreateCompetition", ConsumerName: "launch-comp-create", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.splits.>", OpType: "UpdateCompetitionSplits", ConsumerName: "launch-comp-splits", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.register.>", OpType: "RegisterParticipant", ConsumerName: "launch-comp-register", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.token.>", OpType: "RegisterToken", ConsumerName: "launch-comp-token", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.contribute.>", OpType: "ContributePrizePool", ConsumerName: "launch-comp-contribute", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.finalize.>", OpType: "FinalizeCompetition", ConsumerName: "launch-comp-finalize", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.claim.>", OpType: "ClaimPrize", ConsumerName: "launch-comp-claim", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.cancel.>", OpType: "CancelCompetition", ConsumerName: "launch-comp-cancel", StreamName: "LAUNCH_COMPETITION_OPS"},
		{Subject: "launch.ops.competition.drain.>", OpType: "DrainCompetition", ConsumerName: "launch-comp-drain", StreamName: "LAUNCH_COMPETITION_OPS"},
	}
}

func NewNATSSubscriber(js jetstream.JetStream, opChan chan<- RawOperation) *NATSSubscriber {
	return &NATSSubscriber{
		js:     js,
		opChan: opChan,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (ns *NATSSubscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := ns.js.CreateOrUpdateConsumer(ctx, cfg.StreamName, jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			raw := RawOperation{
				Subject:   msg.Subject(),
				Data:      msg.Data(),
				Timestamp: time.Now(),
				AckFunc:   func() { msg.Ack() },
				NakFunc:   func() { msg.Nak() },
			}

			select {
			case ns.opChan <- raw:
				// Successfully queued for processing
			case <-ctx.Done():
				msg.Nak()
			}
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		ns.consumers = append(ns.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// EnsureStreams creates the required JetStream streams if they don't exist.
// Streams use FileStorage, retention=Limits, max_age=72h.
func EnsureStreams(ctx context.Context, js jetstream.JetStream) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      "LAUNCH_TOKEN_OPS",
			Subjects:  []string{"launch.ops.token.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "LAUNCH_TRADE_OPS",
			Subjects:  []string{"launch.ops.trade.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "LAUNCH_CONFIG_OPS",
			Subjects:  []string{"launch.ops.config.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      "LAUNCH_COMPETITION_OPS",
			Subjects:  []string{"launch.ops.competition.>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		log.Printf("INFO: ensured stream %s", cfg.Name)
	}

	return nil
}

// Stop gracefully stops all consumers.
func (ns *NATSSubscriber) Stop() {
	for _, cc := range ns.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
