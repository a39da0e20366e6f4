// Package awscloud implements teardown.Cloud on top of the AWS SDK.
package awscloud

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/letsgo-sh/ops/pkg/log"
	"github.com/letsgo-sh/ops/pkg/naming"
	"github.com/letsgo-sh/ops/pkg/task"
	"github.com/letsgo-sh/ops/pkg/teardown"
)

const (
	// DefaultServiceDeleteTimeout bounds the wait for an App Runner service
	// to disappear after its deletion started.
	DefaultServiceDeleteTimeout = 15 * time.Minute

	// DefaultPollInterval is the delay between service status checks.
	DefaultPollInterval = 10 * time.Second

	// DefaultTableDeleteTimeout bounds the wait for a table to disappear.
	DefaultTableDeleteTimeout = 5 * time.Minute

	// globalRegion is used for IAM, which has no regional endpoint.
	globalRegion = "us-east-1"
)

// Options configures a Provider.
type Options struct {
	// Profile selects a shared config profile.
	Profile string

	// Endpoint overrides the base endpoint of every client, e.g. for
	// LocalStack.
	Endpoint string

	// AccessKeyID and SecretAccessKey, when both set, replace the default
	// credential chain.
	AccessKeyID     string
	SecretAccessKey string

	Retry                task.RetryPolicy
	ServiceDeleteTimeout time.Duration
	PollInterval         time.Duration
	TableDeleteTimeout   time.Duration

	Naming naming.Conventions
	Logger log.Logger
}

// ClientFactory builds the service clients for a region.
type ClientFactory func(ctx context.Context, region string) (*Clients, error)

// Provider implements teardown.Cloud against AWS. Clients are created lazily
// and cached per region.
type Provider struct {
	opts    Options
	factory ClientFactory
	logger  log.Logger

	mu      sync.Mutex
	clients map[string]*Clients
}

// NewProvider creates a Provider that talks to AWS with the SDK's default
// configuration chain.
func NewProvider(opts Options) *Provider {
	p := NewProviderWithFactory(opts, nil)
	p.factory = func(ctx context.Context, region string) (*Clients, error) {
		cfg, err := LoadConfig(ctx, region, p.opts)
		if err != nil {
			return nil, err
		}
		return NewClients(cfg), nil
	}
	return p
}

// NewProviderWithFactory creates a Provider using factory to build clients.
func NewProviderWithFactory(opts Options, factory ClientFactory) *Provider {
	if opts.ServiceDeleteTimeout <= 0 {
		opts.ServiceDeleteTimeout = DefaultServiceDeleteTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.TableDeleteTimeout <= 0 {
		opts.TableDeleteTimeout = DefaultTableDeleteTimeout
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = task.DefaultRetryPolicy()
	}
	if opts.Naming.Prefix == "" {
		opts.Naming = naming.New("")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &Provider{
		opts:    opts,
		factory: factory,
		logger:  logger.WithComponent("aws"),
		clients: make(map[string]*Clients),
	}
}

func (p *Provider) clientsFor(ctx context.Context, region string) (*Clients, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[region]; ok {
		return c, nil
	}
	c, err := p.factory(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS clients for %s: %w", region, err)
	}
	p.clients[region] = c
	return c, nil
}

// call runs fn under the retry policy, retrying throttling and transient
// service errors.
func (p *Provider) call(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return task.Retry(ctx, p.opts.Retry, isRetryable, fn, func(attempt int, delay time.Duration, lastErr error) {
		p.logger.Debug("Retrying AWS call",
			log.Str("operation", operation),
			log.Int("attempt", attempt),
			log.Duration("delay", delay),
			log.Err(lastErr))
	})
}

// ignoreNotFound maps absence to success.
func ignoreNotFound(err error) error {
	if isNotFound(err) {
		return nil
	}
	return err
}

var _ teardown.Cloud = (*Provider)(nil)
