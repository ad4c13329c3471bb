package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/advisor"
	"github.com/rcliao/munger/internal/llm"
	"github.com/rcliao/munger/internal/render"
)

func init() {
	cmd := &cobra.Command{
		Use:   "wisdom",
		Short: "Show a piece of wisdom",
		Run:   runWisdom,
	}

	RootCmd.AddCommand(cmd)
}

func runWisdom(cmd *cobra.Command, args []string) {
	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}

	language := cfg.Language
	var p llm.Provider
	if language == "chinese" {
		// translation needs a model; without one show the original
		if p, err = newLLM(cmd); err != nil {
			logger.Warn("no LLM for translation", zap.Error(err))
			language = "english"
		}
	}

	a := advisor.New(nil, ws, p, advisor.Config{Language: language}, logger)
	d, err := a.DailyWisdom(cmd.Context(), language)
	if errors.Is(err, advisor.ErrNoWisdom) {
		fmt.Println("The wisdom store is empty. Load the built-in wisdom with 'munger ingest seed'.")
		return
	}
	if err != nil {
		exitErr("wisdom", err)
	}

	if jsonOutput() {
		printJSON(d)
		return
	}
	fmt.Println(render.WisdomPanel(d.Title, d.Content, d.Source))
}
