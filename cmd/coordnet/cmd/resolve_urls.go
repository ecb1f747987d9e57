package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/resolver"
)

var (
	resolveConcurrency int
	resolveRateLimit   float64
	resolveClear       bool
)

var resolveURLsCmd = &cobra.Command{
	Use:   "resolve-urls",
	Short: "Follow redirect chains for all unresolved URLs in the corpus",
	RunE:  runResolveURLs,
}

func init() {
	resolveURLsCmd.Flags().IntVar(&resolveConcurrency, "concurrency", 8, "number of concurrent resolver workers")
	resolveURLsCmd.Flags().Float64Var(&resolveRateLimit, "rate-limit", float64(resolver.DefaultRateLimit), "requests per second across all workers")
	resolveURLsCmd.Flags().BoolVar(&resolveClear, "clear", false, "clear previously failed resolutions so they're retried")
}

func runResolveURLs(cmd *cobra.Command, args []string) error {
	s, err := store.Open(dbPath, store.Options{Log: log.WithField("component", "store")})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()

	if resolveClear {
		n, err := s.ClearFailedResolutions(ctx, nil)
		if err != nil {
			return err
		}
		log.WithField("cleared", n).Info("cleared failed resolutions")
	}

	r := resolver.New(resolver.Options{
		RateLimit: rate.Limit(resolveRateLimit),
		Burst:     resolver.DefaultBurst,
		Log:       log.WithField("component", "resolver"),
	})

	n, err := r.ResolveAll(ctx, s, resolveConcurrency)
	if err != nil {
		return err
	}
	log.WithField("resolved", n).Info("resolve-urls complete")
	return nil
}
