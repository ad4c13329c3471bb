package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/ingest"
	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/wisdom"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Manage the wisdom store",
	}

	add := &cobra.Command{
		Use:   "add [url|file|glob...]",
		Short: "Add wisdom from URLs, files or globs",
		Long: `Add wisdom from web pages, PDF, text and markdown files. Arguments starting
with http:// or https:// are fetched; arguments containing * ? [ or { are
expanded as globs (** matches across directories). With --text, or with no
arguments and piped stdin, the text itself is ingested.`,
		Run: runIngestAdd,
	}
	add.Flags().String("title", "", "Title (default: page title or file name)")
	add.Flags().String("source", "", "Source attribution (default: URL or path)")
	add.Flags().String("category", string(model.CategoryQuote), "Category: mental_model, quote, principle, story, speech_excerpt, book_excerpt")
	add.Flags().String("text", "", "Ingest this text directly")
	add.Flags().Int("chunk-size", ingest.DefaultChunkSize, "Characters per chunk")
	add.Flags().Int("chunk-overlap", ingest.DefaultChunkOverlap, "Characters shared between chunks")

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in wisdom into an empty store",
		Run:   runIngestSeed,
	}

	stat := &cobra.Command{
		Use:   "status",
		Short: "Show wisdom store counts",
		Run:   runIngestStatus,
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the wisdom store",
		Long:  "Search by similarity. With --model the query is a mental model name and records listing it rank first.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runIngestSearch,
	}
	search.Flags().IntP("top-k", "k", wisdom.DefaultTopK, "Max results")
	search.Flags().String("category", "", "Filter by category")
	search.Flags().StringP("tags", "t", "", "Filter by tags (comma-separated, any match)")
	search.Flags().Bool("model", false, "Search by related mental model")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a wisdom record",
		Args:  cobra.ExactArgs(1),
		Run:   runIngestRm,
	}

	wipe := &cobra.Command{
		Use:   "clear",
		Short: "Delete every wisdom record",
		Run:   runIngestClear,
	}
	wipe.Flags().Bool("yes", false, "Confirm deletion")

	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a wisdom bundle (stdin by default)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runIngestImport,
	}
	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the wisdom store as a bundle (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runIngestExport,
	}

	cmd.AddCommand(add, seed, stat, search, rm, wipe, imp, export)
	RootCmd.AddCommand(cmd)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

func runIngestAdd(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	title, _ := f.GetString("title")
	source, _ := f.GetString("source")
	category, _ := f.GetString("category")
	text, _ := f.GetString("text")
	size, _ := f.GetInt("chunk-size")
	overlap, _ := f.GetInt("chunk-overlap")

	if text == "" && len(args) == 0 {
		in, err := readInput(nil)
		if err != nil {
			exitErr("read stdin", err)
		}
		text = in
	}
	if strings.TrimSpace(text) == "" && len(args) == 0 {
		exitErr("ingest add", fmt.Errorf("nothing to ingest (pass URLs, files, globs, --text or stdin)"))
	}

	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	p := ingest.NewProcessor(ws, logger, ingest.WithChunkOptions(ingest.ChunkOptions{Size: size, Overlap: overlap}))
	params := ingest.Params{Title: title, Source: source, Category: category}
	ctx := cmd.Context()

	type result struct {
		Input string `json:"input"`
		Added int    `json:"added"`
		Error string `json:"error,omitempty"`
	}
	var results []result
	report := func(input string, n int, err error) {
		r := result{Input: input, Added: n}
		if err != nil {
			r.Error = err.Error()
			logger.Warn("ingest failed", zap.String("input", input), zap.Error(err))
		}
		results = append(results, r)
	}

	if strings.TrimSpace(text) != "" {
		n, err := p.ProcessText(ctx, text, params)
		report("text", n, err)
	}
	for _, arg := range args {
		switch {
		case isURL(arg):
			n, err := p.ProcessURL(ctx, arg, params)
			report(arg, n, err)
		case isGlob(arg):
			matches, err := p.ProcessGlob(ctx, arg, params)
			if err != nil {
				report(arg, 0, err)
				continue
			}
			for _, m := range matches {
				report(m.Path, m.Added, m.Err)
			}
		default:
			n, err := p.ProcessFile(ctx, arg, params)
			report(arg, n, err)
		}
	}

	failed, total := 0, 0
	for _, r := range results {
		total += r.Added
		if r.Error != "" {
			failed++
		}
	}
	if jsonOutput() {
		printJSON(results)
	} else {
		for _, r := range results {
			if r.Error != "" {
				fmt.Printf("  failed  %s: %s\n", r.Input, r.Error)
			} else {
				fmt.Printf("  %6d  %s\n", r.Added, r.Input)
			}
		}
		fmt.Printf("Added %d records. The store now holds %d.\n", total, ws.Count())
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func runIngestSeed(cmd *cobra.Command, args []string) {
	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	n, err := ingest.Seed(cmd.Context(), ws)
	if err != nil {
		exitErr("seed", err)
	}
	if jsonOutput() {
		fmt.Printf(`{"ok":true,"added":%d,"total":%d}`+"\n", n, ws.Count())
		return
	}
	if n == 0 {
		fmt.Printf("The store already holds %d records; nothing seeded.\n", ws.Count())
		return
	}
	fmt.Printf("Seeded %d records.\n", n)
}

func runIngestStatus(cmd *cobra.Command, args []string) {
	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}

	counts := make(map[model.WisdomCategory]int)
	for _, r := range ws.All() {
		counts[r.Category]++
	}
	if jsonOutput() {
		printJSON(map[string]any{
			"dir":        ws.Dir(),
			"records":    ws.Count(),
			"dims":       ws.Dims(),
			"categories": counts,
		})
		return
	}

	fmt.Println(render.Heading("Wisdom store"))
	fmt.Printf("  %-12s %s\n", "Directory:", ws.Dir())
	fmt.Printf("  %-12s %d\n", "Records:", ws.Count())
	fmt.Printf("  %-12s %d\n", "Dimensions:", ws.Dims())
	cats := ws.DistinctCategories()
	sort.Slice(cats, func(i, j int) bool { return counts[cats[i]] > counts[cats[j]] })
	for _, c := range cats {
		fmt.Printf("    %-16s %d\n", c, counts[c])
	}
}

func runIngestSearch(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	topK, _ := f.GetInt("top-k")
	category, _ := f.GetString("category")
	tags, _ := f.GetString("tags")
	byModel, _ := f.GetBool("model")
	query := strings.Join(args, " ")

	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}

	var hits []model.ScoredRecord
	if byModel {
		hits, err = ws.SearchByRelatedModel(cmd.Context(), query, topK)
	} else {
		hits, err = ws.Search(cmd.Context(), wisdom.SearchParams{
			Query:    query,
			TopK:     topK,
			Category: model.WisdomCategory(category),
			Tags:     splitList(tags),
		})
	}
	if err != nil {
		exitErr("search", err)
	}

	if jsonOutput() {
		if hits == nil {
			hits = []model.ScoredRecord{}
		}
		printJSON(hits)
		return
	}
	if len(hits) == 0 {
		fmt.Println("No matches.")
		return
	}
	for i, h := range hits {
		marker := ""
		if h.ModelMatch {
			marker = " *"
		}
		fmt.Printf("%d. %s [%s] distance %.3f%s\n", i+1, h.Title, h.Category, h.Distance, marker)
		fmt.Printf("   %s\n", model.Truncate(strings.Join(strings.Fields(h.Content), " "), 200))
		if h.Source != "" {
			fmt.Printf("   source: %s, id: %s\n", h.Source, h.ID)
		}
	}
}

func runIngestRm(cmd *cobra.Command, args []string) {
	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	if _, ok := ws.Get(args[0]); !ok {
		exitErr("rm", fmt.Errorf("wisdom record %s not found", args[0]))
	}
	if err := ws.Delete(args[0]); err != nil {
		exitErr("rm", err)
	}
	if jsonOutput() {
		fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
		return
	}
	fmt.Printf("Deleted %s.\n", args[0])
}

func runIngestClear(cmd *cobra.Command, args []string) {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		exitErr("clear", fmt.Errorf("this deletes every wisdom record; rerun with --yes"))
	}
	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	n := ws.Count()
	if err := ws.Clear(); err != nil {
		exitErr("clear", err)
	}
	fmt.Printf("Cleared %d records.\n", n)
}

func runIngestImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open bundle", err)
		}
		defer f.Close()
		r = f
	}

	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	added, skipped, err := ingest.ImportJSON(cmd.Context(), ws, r)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Printf(`{"ok":true,"imported":%d,"skipped":%d}`+"\n", added, skipped)
}

func runIngestExport(cmd *cobra.Command, args []string) {
	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	var w io.Writer = os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			exitErr("create file", err)
		}
		defer f.Close()
		w = f
	}
	if err := ingest.ExportJSON(w, ws.All()); err != nil {
		exitErr("export", err)
	}
}
