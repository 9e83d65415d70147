package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/openpdpa/internal/core/domain"
)

var (
	askTopK    int
	askRestore bool
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the PDPA",
	Long: `Moderates the question, retrieves the closest passages from the index and
answers from them.

Questions the classifier rejects are answered with a fixed refusal, and
questions with no matching passages with a fixed "no information" reply.

Use --restore to replace the local index with the snapshot at STORE_URL
before answering; the corpus is not read in that case.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "passages to retrieve (0 = TOP_K)")
	askCmd.Flags().BoolVar(&askRestore, "restore", false, "restore the published snapshot first")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(askCmd)
}

// askResult is the JSON form of a query result.
type askResult struct {
	Answer    string `json:"answer"`
	Blocked   bool   `json:"blocked"`
	Terminal  string `json:"terminal"`
	Retrieved int    `json:"retrieved"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(args[0])
	if question == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	app, err := requireApplication()
	if err != nil {
		return err
	}

	_, retriever, err := openIndex(cmd.Context(), app, askRestore)
	if err != nil {
		return err
	}

	query, err := app.Query(retriever)
	if err != nil {
		return err
	}

	result, err := query.Ask(cmd.Context(), question, askTopK)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(askResult{
			Answer:    result.Answer(),
			Blocked:   result.Blocked(),
			Terminal:  result.Terminal.String(),
			Retrieved: result.State.RetrievedCount,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(result.Answer())
	return nil
}
