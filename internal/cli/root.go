// Package cli implements the munger CLI commands.
package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rcliao/munger/internal/advisor"
	"github.com/rcliao/munger/internal/config"
	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/llm"
	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/store"
	"github.com/rcliao/munger/internal/wisdom"
)

var (
	dataDir      string
	formatFlag   string
	languageFlag string
	verbose      bool

	cfg    *config.Config
	logger *zap.Logger
)

// RootCmd is the top-level command. Without a subcommand it shows a piece
// of wisdom.
var RootCmd = &cobra.Command{
	Use:   "munger",
	Short: "A personal advisor in the spirit of Charlie Munger",
	Long: `munger answers questions the way Charlie Munger might: through mental models,
inverted thinking and what it knows about you. Advice draws on a local wisdom
store of quotes, principles and speeches, your profile and values charter, and
the life events you record.

Run 'munger init' to create your profile, then 'munger ingest seed' to load the
built-in wisdom.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	Run: runWisdom,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default: $MUNGER_DATA_DIR or ~/.local/share/munger)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text or json")
	RootCmd.PersistentFlags().StringVarP(&languageFlag, "language", "l", "", "Response language: english or chinese")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
}

func setup(cmd *cobra.Command, args []string) error {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if languageFlag != "" {
		if err := cfg.SetLanguage(languageFlag); err != nil {
			return err
		}
	}
	if formatFlag != "text" && formatFlag != "json" {
		return fmt.Errorf("unknown format %q (valid: text, json)", formatFlag)
	}
	logger.Debug("config loaded",
		zap.String("file", cfg.File),
		zap.String("data_dir", cfg.DataDir),
		zap.String("llm", cfg.LLMProvider),
		zap.String("embedding", cfg.EmbeddingProvider))
	return nil
}

func openStore() (*store.SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.DBPath())
}

// openWisdom opens the wisdom store. The embedder is built on first use, so
// listing and deleting work without a reachable embedding provider.
func openWisdom(cmd *cobra.Command) (*wisdom.Store, error) {
	if err := os.MkdirAll(cfg.WisdomDir(), 0o755); err != nil {
		return nil, err
	}
	ec := cfg.Embedding()
	h := embedding.NewHandle(func() (embedding.Embedder, error) {
		return embedding.New(cmd.Context(), ec)
	}, ec.Concurrency)
	return wisdom.Open(cfg.WisdomDir(), h, wisdom.WithAtomicWrites(cfg.AtomicWrites))
}

func newLLM(cmd *cobra.Command) (llm.Provider, error) {
	return llm.New(cmd.Context(), cfg.LLM(), logger)
}

// newAdvisor wires the store, wisdom and LLM together.
func newAdvisor(cmd *cobra.Command, s store.Store) (*advisor.Advisor, error) {
	p, err := newLLM(cmd)
	if err != nil {
		return nil, err
	}
	w, werr := openWisdom(cmd)
	ws, err := retrievalSource(logger, w, werr)
	if err != nil {
		return nil, err
	}
	return advisor.New(s, ws, p, advisor.Config{TopK: cfg.RetrievalTopK, Language: cfg.Language}, logger), nil
}

// retrievalSource turns the result of openWisdom into the advisor's source.
// Corrupt files abort; any other failure is logged and the advisor answers
// without retrieval.
func retrievalSource(log *zap.Logger, w *wisdom.Store, err error) (advisor.WisdomSource, error) {
	var corrupt *wisdom.CorruptStoreError
	switch {
	case errors.As(err, &corrupt):
		return nil, err
	case err != nil:
		log.Warn("wisdom store unavailable", zap.Error(err))
		return nil, nil
	}
	return w, nil
}

// currentProfile returns the default profile or exits with a hint.
func currentProfile(cmd *cobra.Command, s store.Store) *model.Profile {
	p, err := s.DefaultProfile(cmd.Context())
	if err != nil {
		exitErr("profile", err)
	}
	return p
}

func jsonOutput() bool { return formatFlag == "json" }

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	if errors.Is(err, llm.ErrMissingAPIKey) || errors.Is(err, store.ErrNoProfile) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "error: %s: %s\n", msg, llm.FriendlyError(err))
	os.Exit(1)
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// readInput returns the joined args, or stdin when it is piped.
func readInput(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, _ := os.Stdin.Stat()
	if stat != nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", nil
}

// prompter asks questions on an interactive reader.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
	eof bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(in), out: out}
}

// ask prints label and returns the trimmed answer, or def when blank.
func (p *prompter) ask(label, def string) string {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.r.ReadString('\n')
	p.eof = err != nil
	line = strings.TrimSpace(line)
	if line == "" {
		return def
	}
	return line
}

// choose asks until the answer is one of options. At end of input it
// returns def.
func (p *prompter) choose(label string, options []string, def string) string {
	for !p.eof {
		v := strings.ToLower(p.ask(fmt.Sprintf("%s (%s)", label, strings.Join(options, "/")), def))
		for _, o := range options {
			if v == o {
				return v
			}
		}
		fmt.Fprintf(p.out, "  please choose one of: %s\n", strings.Join(options, ", "))
	}
	return def
}

func (p *prompter) confirm(label string, def bool) bool {
	d := "n"
	if def {
		d = "y"
	}
	v := strings.ToLower(p.ask(label+" (y/n)", d))
	return v == "y" || v == "yes"
}
