//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcclickhouse "github.com/testcontainers/testcontainers-go/modules/clickhouse"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("noise-trust-test"),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start kafka container")

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type clickHouseEndpoint struct {
	addr, database, user, password string
}

// startClickHouse runs a ClickHouse server and returns its native endpoint.
func startClickHouse(ctx context.Context, t *testing.T) clickHouseEndpoint {
	t.Helper()
	ep := clickHouseEndpoint{database: "noise", user: "default", password: "clickhouse"}
	ctr, err := tcclickhouse.Run(ctx, "clickhouse/clickhouse-server:23.3.8.21-alpine",
		tcclickhouse.WithUsername(ep.user),
		tcclickhouse.WithPassword(ep.password),
		tcclickhouse.WithDatabase(ep.database),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err, "start clickhouse container")

	ep.addr, err = ctr.ConnectionHost(ctx)
	require.NoError(t, err)
	return ep
}
