package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/join"
	"github.com/kittclouds/coordnet/pkg/tokenizer"
)

var (
	computeNetwork     string
	computeWindow      float64
	computeThreshold   float64
	computeMinWeight   int
	computeWorkers     int
	computeUseResolved bool
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Run the temporal join engine and materialize a coordination network",
	RunE:  runCompute,
}

func init() {
	computeCmd.Flags().StringVar(&computeNetwork, "network", "", "network kind: "+networkKindUsage())
	computeCmd.Flags().Float64Var(&computeWindow, "window", 60, "coordination window size, in seconds")
	computeCmd.Flags().Float64Var(&computeThreshold, "similarity-threshold", 0.8, "minimum Jaccard similarity for co_similar_tweet")
	computeCmd.Flags().IntVar(&computeMinWeight, "min-weight", 1, "drop edges below this weight before materializing")
	computeCmd.Flags().IntVar(&computeWorkers, "workers", 0, "join worker count (0 = GOMAXPROCS)")
	computeCmd.Flags().BoolVar(&computeUseResolved, "resolved-urls", true, "use resolved canonical URLs for co_link")
	computeCmd.MarkFlagRequired("network")
}

func networkKindUsage() string {
	out := ""
	for i, k := range store.ValidNetworkKinds {
		if i > 0 {
			out += ", "
		}
		out += string(k)
	}
	return out
}

func runCompute(cmd *cobra.Command, args []string) error {
	kind := store.NetworkKind(computeNetwork)
	if !kind.IsValid() {
		return corerr.New(corerr.KindInvalidArguments, "unknown --network: "+computeNetwork)
	}

	s, err := store.Open(dbPath, store.Options{Log: log.WithField("component", "store")})
	if err != nil {
		return err
	}
	defer s.Close()

	eng := join.New(join.Config{
		Kind:                kind,
		Window:              computeWindow,
		SimilarityThreshold: computeThreshold,
		TokenizerOptions:    tokenizer.Options{},
		UseResolvedURLs:     computeUseResolved,
		Workers:             computeWorkers,
	})

	ctx := context.Background()
	edges, err := eng.Compute(ctx, s)
	if err != nil {
		return err
	}

	if err := s.WriteNetwork(ctx, kind, edges, computeMinWeight); err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"network": kind,
		"edges":   len(edges),
	}).Info("compute complete")
	return nil
}
