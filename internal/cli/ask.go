package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ytrag/internal/pipeline"
)

var (
	askJSON        bool
	askShowSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [url] [question]",
	Short: "Answer one question about a video",
	Long: `Loads the video (from the cache when possible) and answers a single
question using only the retrieved transcript passages.`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	askCmd.Flags().BoolVarP(&askShowSources, "sources", "s", false, "print the retrieved passages")
	rootCmd.AddCommand(askCmd)
}

type sourceJSON struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

type answerJSON struct {
	SourceID string       `json:"videoId"`
	Question string       `json:"question"`
	Answer   string       `json:"answer"`
	Sources  []sourceJSON `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	engine, cleanup, err := engineFactory(ctx, appConfig, appLog)
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := engine.Submit(ctx, args[0]); err != nil {
		return err
	}
	ans, err := engine.Ask(ctx, args[1])
	if err != nil {
		return err
	}
	if askJSON {
		return outputAnswerJSON(cmd, ans)
	}
	cmd.Println(ans.Text)
	if askShowSources {
		cmd.Println()
		for i, r := range ans.Sources {
			cmd.Printf("  [%d] chunk #%d (%.3f)\n", i+1, r.Chunk.Index, r.Score)
			cmd.Printf("      %s\n", r.Chunk.Text)
		}
	}
	return nil
}

func outputAnswerJSON(cmd *cobra.Command, ans *pipeline.Answer) error {
	out := answerJSON{SourceID: ans.SourceID, Question: ans.Question, Answer: ans.Text, Sources: []sourceJSON{}}
	for _, r := range ans.Sources {
		out.Sources = append(out.Sources, sourceJSON{Index: r.Chunk.Index, Score: r.Score, Text: r.Chunk.Text})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
