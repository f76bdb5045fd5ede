//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	mysqlImage = "mysql:8.0"
	mongoImage = "mongo:7"
	redisImage = "redis:7-alpine"

	dbName     = "cine_test"
	dbPassword = "secret"
)

// endpoint is a started container and the host:port it is reachable on.
type endpoint struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

func (e endpoint) Addr() string { return e.Host + ":" + e.Port }

func start(ctx context.Context, req testcontainers.ContainerRequest, port string) (*endpoint, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", req.Image, err)
	}
	host, err := c.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("host of %s: %w", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return nil, fmt.Errorf("port of %s: %w", req.Image, err)
	}
	return &endpoint{Container: c, Host: host, Port: mapped.Port()}, nil
}

func startMySQL(ctx context.Context) (*endpoint, error) {
	return start(ctx, testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": dbPassword,
			"MYSQL_DATABASE":      dbName,
		},
		// The entrypoint starts a temporary server first.
		WaitingFor: wait.ForAll(
			wait.ForLog("ready for connections").WithOccurrence(2),
			wait.ForListeningPort("3306/tcp"),
		).WithDeadline(120 * time.Second),
	}, "3306/tcp")
}

func startMongo(ctx context.Context) (*endpoint, error) {
	return start(ctx, testcontainers.ContainerRequest{
		Image:        mongoImage,
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Waiting for connections"),
			wait.ForListeningPort("27017/tcp"),
		).WithDeadline(60 * time.Second),
	}, "27017/tcp")
}

func startRedis(ctx context.Context) (*endpoint, error) {
	return start(ctx, testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
}
