// cmd/reviewer/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Corphon/AICodeReviewer/internal/config"
	"github.com/Corphon/AICodeReviewer/internal/utils"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose   bool
	chunkSize int
	model     string
	timeout   time.Duration

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "reviewer",
	Short: "AI code reviewer backed by Google Gemini",
	Long: `reviewer sends source code to Gemini for a structured Markdown review.

Long inputs are split into fixed-size chunks that are reviewed one after
another; the first failing chunk aborts the review. Input that does not look
like code gets a single conversational reply instead.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			utils.GetLogger().SetLogLevel(utils.DEBUG)
		} else {
			utils.GetLogger().SetLogLevel(utils.WARNING)
		}

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("chunk-size") {
			loaded.ChunkSize = chunkSize
		}
		if model != "" {
			loaded.GeminiModel = model
		}
		if cmd.Flags().Changed("timeout") {
			loaded.ReviewTimeout = timeout
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = utils.GetLogger().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&chunkSize, "chunk-size", config.DefaultChunkSize, "Maximum characters per reviewed chunk")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "Gemini model (default: GEMINI_MODEL or "+config.DefaultModel+")")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", config.DefaultReviewTimeout, "Review timeout")

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
