package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the command line",
	Long: `Answer one question without starting the HTTP server.

Examples:
  atlasd ask "Which floors are there?"
  atlasd ask "Utilization by floor last 30 days"
  atlasd ask --json "Why is the 3rd floor underutilized?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full answer envelope as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	q := answer.NewQuestion(strings.Join(args, " "))
	env := app.orch.Ask(ctx, q)

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}

	if env.Err != "" && env.Answer == "" {
		return fmt.Errorf("no answer: %s", env.Err)
	}
	fmt.Println(env.Answer)
	for _, ev := range env.Evidence {
		switch ev.Kind {
		case answer.EvidenceExecutedQuery:
			fmt.Fprintf(os.Stderr, "[evidence] executed query (%d rows)\n", ev.Result.RowCount)
		case answer.EvidenceRetrievedPassages:
			fmt.Fprintf(os.Stderr, "[evidence] %d retrieved passages\n", len(ev.Passages))
		case answer.EvidenceToolOutput:
			fmt.Fprintf(os.Stderr, "[evidence] tool %s (%d rows)\n", ev.Tool.Tool, ev.Tool.Result.RowCount)
		}
	}
	return nil
}
