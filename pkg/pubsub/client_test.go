package pubsub

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/dispo-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	c := &Client{projectID: "dispo-dev"}

	assert.Equal(t, "projects/dispo-dev/topics/picking", c.topicResourceName("picking"))
	assert.Equal(t, "projects/other/topics/x", c.topicResourceName("projects/other/topics/x"))
	assert.Equal(t, "", c.topicResourceName("  "))

	assert.Equal(t, "projects/dispo-dev/subscriptions/tx-sub", c.subscriptionResourceName(" tx-sub "))
	assert.Equal(t, "projects/other/subscriptions/y", c.subscriptionResourceName("projects/other/subscriptions/y"))

	var nilClient *Client
	assert.Equal(t, "", nilClient.topicResourceName("picking"))
	assert.Nil(t, nilClient.Publisher("picking"))
	assert.Nil(t, nilClient.Subscription("tx-sub"))
}

func TestConfiguredNames(t *testing.T) {
	cfg := config.PubSubConfig{
		TransactionsTopic:        "tx",
		TransactionsSubscription: " ",
		PickingTopic:             "picking",
	}
	assert.Equal(t, []string{"tx", "picking"}, topicNames(cfg))
	assert.Empty(t, subscriptionNames(cfg))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
}

func TestPingUninitialized(t *testing.T) {
	assert.Error(t, (&Client{}).Ping(context.Background()))
	assert.NoError(t, (&Client{}).Close())
}

func TestClientOptionsPrioritizesJSON(t *testing.T) {
	opts := clientOptions(config.GCPConfig{
		CredentialsJSON:        `{"dummy": "value"}`,
		ApplicationCredentials: "/tmp/creds",
	})
	assert.Len(t, opts, 1)

	assert.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/tmp/creds"}), 1)
	assert.Empty(t, clientOptions(config.GCPConfig{}))
}

func TestCheckResourceClassifiesAdminErrors(t *testing.T) {
	ctx := context.Background()
	c := &Client{projectID: "dispo-dev"}

	var seen string
	err := c.checkResource(ctx, kindTopic, "picking", func(_ context.Context, full string) error {
		seen = full
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "projects/dispo-dev/topics/picking", seen)

	err = c.checkResource(ctx, kindSubscription, "tx-sub", func(context.Context, string) error {
		return status.Error(codes.NotFound, "gone")
	})
	assert.EqualError(t, err, `subscription "tx-sub" does not exist`)

	unavailable := status.Error(codes.Unavailable, "try later")
	err = c.checkResource(ctx, kindTopic, "tx", func(context.Context, string) error { return unavailable })
	assert.ErrorIs(t, err, unavailable)

	err = (&Client{}).checkResource(ctx, kindTopic, "tx", func(context.Context, string) error {
		return errors.New("should not be called")
	})
	assert.EqualError(t, err, `topic "tx" not configured`)
}
