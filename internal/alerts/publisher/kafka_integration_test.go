//go:build integration

package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"sojourn/internal/alerts/models"
	"sojourn/internal/alerts/publisher"
	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
	"sojourn/pkg/testutil/containers"
)

const alertsTopic = "sojourn.alerts.test"

type KafkaPublisherSuite struct {
	suite.Suite
	redpanda  *containers.RedpandaContainer
	publisher *publisher.Kafka
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(s.redpanda.CreateTopic(ctx, alertsTopic))

	p, err := publisher.NewKafka([]string{s.redpanda.Broker}, alertsTopic)
	s.Require().NoError(err)
	s.Require().NoError(p.Ping(ctx))
	s.publisher = p
}

func (s *KafkaPublisherSuite) TearDownSuite() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

func (s *KafkaPublisherSuite) TestPublishedAlertIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := compliance.Evaluate([]compliance.Interval{{
		PersonID:          id.NewPersonID(),
		ZoneCode:          "PT",
		CountsTowardLimit: true,
		Entry:             id.MustParseDate("2025-01-01"),
		Exit:              id.MustParseDate("2025-03-25"),
	}}, id.MustParseDate("2025-03-25"))
	s.Require().NoError(err)
	alert := models.NewAlert(id.NewPersonID(), id.MustParseDate("2025-03-01"), 30, st, time.Now().UTC())

	s.Require().NoError(s.publisher.Publish(ctx, alert))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(alertsTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	var got *kgo.Record
	for got == nil {
		fetches := consumer.PollFetches(ctx)
		s.Require().Empty(fetches.Errors())
		fetches.EachRecord(func(r *kgo.Record) {
			if string(r.Key) == alert.PersonID.String() {
				got = r
			}
		})
	}

	var decoded models.Alert
	s.Require().NoError(json.Unmarshal(got.Value, &decoded))
	s.Equal(alert.ID, decoded.ID)
	s.Equal(alert.AtRiskOn, decoded.AtRiskOn)
	s.Equal(compliance.TierAtRisk, decoded.RiskTier)
	s.Require().Len(got.Headers, 1)
	s.Equal("risk_tier", got.Headers[0].Key)
}
