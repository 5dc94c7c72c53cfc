package main

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/lineage-cli/internal/auth"
	"github.com/sells-group/lineage-cli/internal/config"
	"github.com/sells-group/lineage-cli/internal/lineage"
	"github.com/sells-group/lineage-cli/internal/resilience"
	"github.com/sells-group/lineage-cli/pkg/datalineage"
)

// newLineageClient builds the API client shared by every command. One token
// source and one limiter serve all calls the process makes.
func newLineageClient(c *config.Config) datalineage.Client {
	lc := c.Lineage

	opts := []datalineage.Option{
		datalineage.WithTokenSource(auth.NewTokenSource(c.Auth.TokenOptions())),
		datalineage.WithRetry(resilience.FromRetryConfig(lc.Retry.MaxAttempts, lc.Retry.InitialBackoffMs, lc.Retry.MaxBackoffMs)),
	}
	if lc.RatePerSec > 0 {
		burst := lc.Burst
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, datalineage.WithRateLimiter(rate.NewLimiter(rate.Limit(lc.RatePerSec), burst)))
	}
	if lc.TimeoutSecs > 0 {
		opts = append(opts, datalineage.WithHTTPClient(&http.Client{
			Timeout: time.Duration(lc.TimeoutSecs) * time.Second,
		}))
	}
	if lc.BaseURL != "" {
		opts = append(opts, datalineage.WithBaseURL(lc.BaseURL))
	}
	return datalineage.NewClient(lc.Region, opts...)
}

func recorderOptions(lc config.LineageConfig) []lineage.Option {
	return []lineage.Option{
		lineage.WithMaxDepth(lc.MaxDepth),
		lineage.WithMaxQueries(lc.MaxQueries),
	}
}
