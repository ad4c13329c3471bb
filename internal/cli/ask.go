package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/munger/internal/advisor"
	"github.com/rcliao/munger/internal/render"
)

func init() {
	ask := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask for advice",
		Long:  "Ask for advice. The question can be positional args or piped via stdin.",
		Run:   runAsk,
	}
	ask.Flags().StringP("context", "c", "", "Extra context for this question")
	ask.Flags().Bool("no-stream", false, "Wait for the full answer and render it as markdown")

	review := &cobra.Command{
		Use:   "review",
		Short: "Reflect on your recent life events",
		Run:   runReview,
	}
	review.Flags().Bool("no-stream", false, "Wait for the full review and render it as markdown")

	RootCmd.AddCommand(ask, review)
}

func printDelta(s string) { fmt.Print(s) }

func runAsk(cmd *cobra.Command, args []string) {
	session, _ := cmd.Flags().GetString("context")
	noStream, _ := cmd.Flags().GetBool("no-stream")

	question, err := readInput(args)
	if err != nil {
		exitErr("read stdin", err)
	}
	if strings.TrimSpace(question) == "" {
		exitErr("ask", fmt.Errorf("question is required (positional args or stdin)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	a, err := newAdvisor(cmd, s)
	if err != nil {
		exitErr("advisor", err)
	}

	stream := !noStream && !jsonOutput()
	p := advisor.AskParams{Question: strings.TrimSpace(question), SessionContext: session}
	if stream {
		p.OnDelta = printDelta
	}
	ans, err := a.Ask(cmd.Context(), p)
	if err != nil {
		exitErr("ask", err)
	}

	if jsonOutput() {
		printJSON(ans)
		return
	}
	if stream {
		fmt.Println()
	} else {
		fmt.Print(render.Markdown(ans.Text, render.DefaultWidth))
	}
	printModelsUsed(ans.ModelsUsed)
}

func printModelsUsed(models []string) {
	if len(models) == 0 {
		return
	}
	fmt.Printf("\n%s %s\n", render.Heading("Mental models:"), strings.Join(models, ", "))
}

func runReview(cmd *cobra.Command, args []string) {
	noStream, _ := cmd.Flags().GetBool("no-stream")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	a, err := newAdvisor(cmd, s)
	if err != nil {
		exitErr("advisor", err)
	}

	stream := !noStream && !jsonOutput()
	p := advisor.ReflectParams{}
	if stream {
		fmt.Println(render.Heading("Looking back"))
		fmt.Println()
		p.OnDelta = printDelta
	}
	text, err := a.Reflect(cmd.Context(), p)
	if err != nil {
		exitErr("review", err)
	}

	switch {
	case jsonOutput():
		printJSON(map[string]string{"review": text})
	case stream:
		fmt.Println()
	default:
		fmt.Print(render.Markdown(text, render.DefaultWidth))
	}
}
