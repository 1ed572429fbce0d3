package cli

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [url]",
	Short: "Fetch, cache and index a video's transcript",
	Long: `Fetches the transcript of a video (or reads it from the cache),
splits it into overlapping chunks and indexes them, then prints a short
extractive summary.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	engine, cleanup, err := engineFactory(cmd.Context(), appConfig, appLog)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := engine.Submit(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	origin := "fetched"
	if res.FromCache {
		origin = "cached"
	}
	cmd.Printf("Video:   %s (%s)\n", res.SourceID, origin)
	cmd.Printf("Length:  %d characters\n", res.TranscriptRunes)
	cmd.Printf("Chunks:  %d (%d indexed)\n", res.Chunks, res.Indexed)
	if res.Summary != "" {
		cmd.Println()
		cmd.Println("Summary:")
		cmd.Printf("  %s\n", res.Summary)
	}
	return nil
}
