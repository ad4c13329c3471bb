package cli

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what munger knows and how it is configured",
		Run:   runStatus,
	}

	RootCmd.AddCommand(cmd)
}

type status struct {
	DataDir           string                 `json:"data_dir"`
	ConfigFile        string                 `json:"config_file,omitempty"`
	Database          *store.Stats           `json:"database"`
	Profile           string                 `json:"profile,omitempty"`
	CharterDefined    bool                   `json:"charter_defined"`
	WisdomRecords     int                    `json:"wisdom_records"`
	WisdomDims        int                    `json:"wisdom_dims"`
	WisdomCategories  []model.WisdomCategory `json:"wisdom_categories"`
	LLMProvider       string                 `json:"llm_provider"`
	LLMModel          string                 `json:"llm_model"`
	LLMKeySet         bool                   `json:"llm_key_set"`
	EmbeddingProvider string                 `json:"embedding_provider"`
	EmbeddingModel    string                 `json:"embedding_model"`
	Language          string                 `json:"language"`
	BackupConfigured  bool                   `json:"backup_configured"`
}

func runStatus(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	st := status{
		DataDir:           cfg.DataDir,
		ConfigFile:        cfg.File,
		Database:          stats,
		LLMProvider:       cfg.LLMProvider,
		LLMModel:          cfg.Provider().Model,
		LLMKeySet:         cfg.Provider().APIKey != "",
		EmbeddingProvider: cfg.EmbeddingProvider,
		EmbeddingModel:    cfg.EmbeddingModel,
		Language:          cfg.Language,
		BackupConfigured:  cfg.Backup.Configured(),
	}

	p, err := s.DefaultProfile(cmd.Context())
	switch {
	case errors.Is(err, store.ErrNoProfile):
	case err != nil:
		exitErr("profile", err)
	default:
		st.Profile = p.Name
		st.CharterDefined = loadCharter(cmd, s, p.ID).Defined()
	}

	ws, err := openWisdom(cmd)
	if err != nil {
		exitErr("open wisdom", err)
	}
	st.WisdomRecords = ws.Count()
	st.WisdomDims = ws.Dims()
	st.WisdomCategories = ws.DistinctCategories()

	if jsonOutput() {
		printJSON(st)
		return
	}

	yesNo := map[bool]string{true: "yes", false: "no"}
	fmt.Println(render.Heading("Data"))
	fmt.Printf("  %-16s %s\n", "Directory:", st.DataDir)
	if st.ConfigFile != "" {
		fmt.Printf("  %-16s %s\n", "Config:", st.ConfigFile)
	}
	fmt.Printf("  %-16s %s (%s)\n", "Database:", stats.DBPath, humanize.Bytes(uint64(stats.DBSizeBytes)))
	profile := st.Profile
	if profile == "" {
		profile = "none (run 'munger init')"
	}
	fmt.Printf("  %-16s %s\n", "Profile:", profile)
	fmt.Printf("  %-16s %s\n", "Charter:", yesNo[st.CharterDefined])
	fmt.Printf("  %-16s %d\n", "Events:", stats.Events)
	fmt.Printf("  %-16s %d\n", "Conversations:", stats.Conversations)

	fmt.Println(render.Heading("Wisdom"))
	fmt.Printf("  %-16s %d\n", "Records:", st.WisdomRecords)
	if st.WisdomDims > 0 {
		fmt.Printf("  %-16s %d\n", "Dimensions:", st.WisdomDims)
	}
	for _, c := range st.WisdomCategories {
		fmt.Printf("    - %s\n", c)
	}

	fmt.Println(render.Heading("Models"))
	fmt.Printf("  %-16s %s (%s), key set: %s\n", "LLM:", st.LLMProvider, st.LLMModel, yesNo[st.LLMKeySet])
	fmt.Printf("  %-16s %s (%s)\n", "Embeddings:", st.EmbeddingProvider, st.EmbeddingModel)
	fmt.Printf("  %-16s %s\n", "Language:", st.Language)
	fmt.Printf("  %-16s %s\n", "Backup:", yesNo[st.BackupConfigured])
}
