package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/dispo-backend/pkg/config"
	"github.com/angelmondragon/dispo-backend/pkg/logger"
)

type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

var errProjectIDRequired = errors.New("gcp project id is required")

// NewClient creates a Pub/Sub v2 client and ensures the configured topics and subscriptions
// exist. Publishers run without a subscription; the worker needs one.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: gcp.ProjectID,
		cfg:       cfg,
	}

	if err := c.ensureConfigured(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "gcp_project", gcp.ProjectID), "pubsub client initialized")
	}

	return c, nil
}

// ensureConfigured reports every missing topic and subscription at once.
func (c *Client) ensureConfigured(ctx context.Context) error {
	var errs error
	for _, name := range topicNames(c.cfg) {
		errs = multierr.Append(errs, c.ensureTopicExists(ctx, name))
	}
	for _, name := range subscriptionNames(c.cfg) {
		errs = multierr.Append(errs, c.ensureSubscriptionExists(ctx, name))
	}
	return errs
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(gcp.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(gcp.CredentialsJSON)))
	case strings.TrimSpace(gcp.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(gcp.ApplicationCredentials))
	}
	return opts
}

func topicNames(cfg config.PubSubConfig) []string {
	return nonEmpty(cfg.TransactionsTopic, cfg.PickingTopic)
}

func subscriptionNames(cfg config.PubSubConfig) []string {
	return nonEmpty(cfg.TransactionsSubscription)
}

func nonEmpty(values ...string) []string {
	names := []string{}
	for _, name := range values {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}

const (
	kindTopic        = "topics"
	kindSubscription = "subscriptions"
)

func (c *Client) ensureTopicExists(ctx context.Context, name string) error {
	return c.checkResource(ctx, kindTopic, name, func(ctx context.Context, full string) error {
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: full})
		return err
	})
}

func (c *Client) ensureSubscriptionExists(ctx context.Context, name string) error {
	return c.checkResource(ctx, kindSubscription, name, func(ctx context.Context, full string) error {
		_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: full})
		return err
	})
}

// checkResource runs an admin Get for one resource. The admin API returns gRPC errors, so
// codes.NotFound is the missing-resource signal.
func (c *Client) checkResource(ctx context.Context, kind, name string, get func(context.Context, string) error) error {
	noun := strings.TrimSuffix(kind, "s")
	full := c.resourceName(kind, name)
	if full == "" {
		return fmt.Errorf("%s %q not configured", noun, name)
	}
	if err := get(ctx, full); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%s %q does not exist", noun, name)
		}
		return fmt.Errorf("checking %s %q: %w", noun, name, err)
	}
	return nil
}

// Subscription returns a v2 Subscriber handle for the configured subscription name (ID or full resource name).
func (c *Client) Subscription(name string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.subscriptionResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Subscriber(fullName)
}

// TransactionsSubscription returns the subscriber for inbound transaction events.
func (c *Client) TransactionsSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfg.TransactionsSubscription)
}

// Publisher returns a publisher handle for the given topic ID/resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.topicResourceName(name)
	if fullName == "" {
		return nil
	}
	return c.client.Publisher(fullName)
}

// Ping verifies Pub/Sub connectivity by checking configured topics and subscriptions exist.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	return c.ensureConfigured(ctx)
}

// Close releases the Pub/Sub client resources.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) subscriptionResourceName(name string) string {
	return c.resourceName(kindSubscription, name)
}

func (c *Client) topicResourceName(name string) string {
	return c.resourceName(kindTopic, name)
}

// resourceName expands a short id to projects/<project>/<kind>/<id>; full resource names
// pass through unchanged.
func (c *Client) resourceName(kind, name string) string {
	if c == nil {
		return ""
	}
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/"+kind+"/") {
		return n
	}
	project := strings.TrimSpace(c.projectID)
	if project == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/%s/%s", project, kind, n)
}
