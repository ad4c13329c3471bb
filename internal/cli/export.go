package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/munger/internal/store"
)

func init() {
	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Export your profile, charter, events and conversations as JSON",
		Args:  cobra.MaximumNArgs(1),
		Run:   runExport,
	}
	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Import data written by export (stdin by default)",
		Long:  "Import data written by export. The data is recreated under a new profile with fresh ids.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(export, imp)
}

func runExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	exp, err := s.ExportAll(cmd.Context(), currentProfile(cmd, s).ID)
	if err != nil {
		exitErr("export", err)
	}
	b, _ := json.MarshalIndent(exp, "", "  ")
	if len(args) == 0 {
		fmt.Println(string(b))
		return
	}
	if err := os.WriteFile(args[0], append(b, '\n'), 0o600); err != nil {
		exitErr("export", err)
	}
}

func runImport(cmd *cobra.Command, args []string) {
	var r io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			exitErr("open file", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		exitErr("read input", err)
	}

	var exp store.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		exitErr("parse json", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	profileID, n, err := s.Import(cmd.Context(), &exp)
	if err != nil {
		exitErr("import", err)
	}
	fmt.Printf(`{"ok":true,"profile_id":%q,"imported":%d}`+"\n", profileID, n)
}
