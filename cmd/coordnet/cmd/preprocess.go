package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kittclouds/coordnet/internal/corerr"
	"github.com/kittclouds/coordnet/internal/store"
	"github.com/kittclouds/coordnet/pkg/ingest"
)

var (
	preprocessFormat string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <input-file>",
	Short: "Ingest a corpus file into the normalized store",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVar(&preprocessFormat, "format", "csv", "input format: csv or twitter-json")
}

func adapterFor(format string) (ingest.Adapter, error) {
	switch format {
	case "csv":
		return ingest.CSVAdapter{}, nil
	case "twitter-json":
		return ingest.TwitterJSONAdapter{ExtractInlineURLs: true}, nil
	default:
		return nil, corerr.New(corerr.KindInvalidArguments, "unknown --format: "+format)
	}
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	adapter, err := adapterFor(preprocessFormat)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return corerr.Wrap(corerr.KindInvalidArguments, "read input file", err)
	}

	messages, err := adapter.Parse(data)
	if err != nil {
		return err
	}

	s, err := store.Open(dbPath, store.Options{Log: log.WithField("component", "store")})
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.InsertMessages(context.Background(), messages)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"accepted":           stats.Accepted,
		"rejected_duplicate": stats.RejectedDuplicate,
		"rejected_malformed": stats.RejectedMalformed,
	}).Info("ingest complete")
	return nil
}
