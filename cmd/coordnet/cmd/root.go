// Package cmd wires coordnet's subcommands (preprocess, resolve-urls,
// compute, export-network) onto a cobra root command.
package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	dbPath   string
	logLevel string
	log      = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "coordnet",
	Short: "Detect coordinated activity across a social-media message corpus",
	Long: "coordnet ingests a normalized message corpus and computes weighted,\n" +
		"directed coordination networks over user accounts: co-retweet,\n" +
		"co-tweet, co-similarity, co-link, co-reply, and co-post.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		lvl, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(lvl)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "coordnet.db", "path to the corpus SQLite database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(resolveURLsCmd)
	rootCmd.AddCommand(computeCmd)
	rootCmd.AddCommand(exportNetworkCmd)
}
