package redis

import (
	"context"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Testing interface {
	require.TestingT
	Context() context.Context
	Logf(format string, args ...any)
	Cleanup(func())
}

func NewTestContainer(t Testing) Connector {
	ctx := t.Context()
	redisC, err := testcontainers.Run(
		ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("6379/tcp"),
			wait.ForLog("Ready to accept connections"),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(redisC); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	ip, err := redisC.ContainerIP(t.Context())
	require.NoError(t, err)
	t.Logf("redis ip: %s", ip)
	return ConnectURL("redis://" + ip + ":6379")
}
