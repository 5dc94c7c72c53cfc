// Package auth acquires bearer credentials for the lineage API.
package auth

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultBrokerCommand prints an access token for Application Default Credentials.
var DefaultBrokerCommand = []string{"gcloud", "auth", "application-default", "print-access-token"}

// Options configures token acquisition.
type Options struct {
	// Token is a static bearer token. When set the broker is never run.
	Token string

	// Command is the credential broker argv. Default: DefaultBrokerCommand.
	Command []string

	// TTL is the assumed lifetime of a brokered token, which does not
	// report its own expiry. Default: 55m.
	TTL time.Duration

	// ExpiryDelta refreshes the cached token this long before TTL ends.
	// Default: 1m.
	ExpiryDelta time.Duration

	// Timeout bounds a single broker invocation. Default: 30s.
	Timeout time.Duration
}

// runFunc executes argv and returns stdout.
type runFunc func(ctx context.Context, argv []string) ([]byte, error)

func execRun(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, eris.Wrapf(err, "%s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

// BrokerSource is an oauth2.TokenSource backed by a command-line
// credential broker. It runs the broker on every Token call; wrap it with
// NewTokenSource for caching.
type BrokerSource struct {
	argv    []string
	ttl     time.Duration
	timeout time.Duration
	run     runFunc
	now     func() time.Time
}

// NewBrokerSource creates a BrokerSource from opts.
func NewBrokerSource(opts Options) *BrokerSource {
	opts = withDefaults(opts)
	return &BrokerSource{
		argv:    opts.Command,
		ttl:     opts.TTL,
		timeout: opts.Timeout,
		run:     execRun,
		now:     time.Now,
	}
}

// Token runs the broker and returns its output as a bearer token.
func (b *BrokerSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	out, err := b.run(ctx, b.argv)
	if err != nil {
		return nil, eris.Wrapf(err, "auth: run %s", b.argv[0])
	}

	access := strings.TrimSpace(string(out))
	if access == "" {
		return nil, eris.Errorf("auth: %s printed no token", b.argv[0])
	}

	zap.L().Debug("acquired access token", zap.String("broker", b.argv[0]))
	return &oauth2.Token{
		AccessToken: access,
		TokenType:   "Bearer",
		Expiry:      b.now().Add(b.ttl),
	}, nil
}

// NewTokenSource returns the token source the lineage client should use: a
// static source when opts.Token is set, otherwise the broker wrapped in a
// cache that reuses the token until ExpiryDelta before it expires.
func NewTokenSource(opts Options) oauth2.TokenSource {
	return newTokenSource(opts, execRun)
}

func newTokenSource(opts Options, run runFunc) oauth2.TokenSource {
	opts = withDefaults(opts)
	if opts.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: "Bearer"})
	}
	b := NewBrokerSource(opts)
	b.run = run
	return oauth2.ReuseTokenSourceWithExpiry(nil, b, opts.ExpiryDelta)
}

func withDefaults(opts Options) Options {
	if len(opts.Command) == 0 {
		opts.Command = DefaultBrokerCommand
	}
	if opts.TTL <= 0 {
		opts.TTL = 55 * time.Minute
	}
	if opts.ExpiryDelta <= 0 {
		opts.ExpiryDelta = time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return opts
}
