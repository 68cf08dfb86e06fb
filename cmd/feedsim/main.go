package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "feedsim",
		Short:         "Simulate a social feed ranking algorithm",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default: from config)")

	root.AddCommand(parseCmd())
	root.AddCommand(rankCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(serveCmd())

	return root
}

func parseCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse post files and print the records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd.Context(), args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

// rankFlags holds the per-invocation overrides of the configured profile.
type rankFlags struct {
	feeds        []string
	weights      map[string]string
	follows      []string
	hashtags     []string
	promoteUsers []string
	promoteIdx   []int
	recencyUsers map[string]string
	recencyIdx   map[string]string
	maxMatches   int
	limit        int
	jsonOutput   bool
	save         bool
	label        string
}

func rankCmd() *cobra.Command {
	var f rankFlags

	cmd := &cobra.Command{
		Use:   "rank [file...]",
		Short: "Score and rank posts",
		Long: "Score and rank posts from delimited text files (or the sources in the config).\n" +
			"Weights are on a 0-10 scale; out-of-range values are clamped and non-numeric values count as 0.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.maxMatches = -1
			if cmd.Flags().Changed("max-matches") {
				f.maxMatches, _ = cmd.Flags().GetInt("max-matches")
			}
			return runRank(cmd.Context(), args, f)
		},
	}

	cmd.Flags().StringSliceVar(&f.feeds, "feed", nil, "local RSS/Atom feed files to import (name=path or path)")
	cmd.Flags().StringToStringVar(&f.weights, "weights", nil, "signal weights, e.g. likes=7,follows_poster=8,hashtags=5")
	cmd.Flags().StringSliceVar(&f.follows, "follow", nil, "followed users (replaces the profile list)")
	cmd.Flags().StringSliceVar(&f.hashtags, "hashtag", nil, "followed hashtags (replaces the profile list)")
	cmd.Flags().StringSliceVar(&f.promoteUsers, "promote", nil, "users whose posts are paid promotions")
	cmd.Flags().IntSliceVar(&f.promoteIdx, "promote-index", nil, "post positions that are paid promotions")
	cmd.Flags().StringToStringVar(&f.recencyUsers, "recency-user", nil, "days since posting by user, e.g. amy=2")
	cmd.Flags().StringToStringVar(&f.recencyIdx, "recency-index", nil, "days since posting by post position, e.g. 0=2")
	cmd.Flags().Int("max-matches", 0, "cap hashtag and follower-like match counts (0 = unbounded)")
	cmd.Flags().IntVar(&f.limit, "limit", 10, "max posts to show (0 = all)")
	cmd.Flags().BoolVar(&f.jsonOutput, "json", false, "output as JSON with score breakdowns")
	cmd.Flags().BoolVar(&f.save, "save", false, "save the run to history")
	cmd.Flags().StringVar(&f.label, "label", "", "label for the saved run")
	return cmd
}

func runsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved ranking runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListRuns(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to show")

	var jsonOutput bool
	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowRun(cmd.Context(), args[0], jsonOutput)
		},
	}
	show.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeleteRun(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(show, del)
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
