package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or change your profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Run:   runProfileShow,
	}
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Change profile fields by flag",
		Run:   runProfileEdit,
	}
	addProfileFlags(edit)
	edit.Flags().String("pref-language", "", "Preferred language: english or chinese")

	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Write your profile as YAML (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runProfileExport,
	}
	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Load a profile from YAML (stdin by default)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runProfileImport,
	}

	cmd.AddCommand(show, edit, export, imp)
	RootCmd.AddCommand(cmd)
}

func runProfileShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p := currentProfile(cmd, s)
	if jsonOutput() {
		printJSON(p)
		return
	}
	fmt.Print(formatProfile(p))
}

func formatProfile(p *model.Profile) string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %-18s %s\n", label+":", value)
		}
	}
	b.WriteString(render.Heading(p.Name) + "\n")
	if p.Background.Age != nil {
		line("Age", fmt.Sprint(*p.Background.Age))
	}
	line("Career stage", string(p.Background.CareerStage))
	line("Industry", p.Background.Industry)
	line("Occupation", p.Background.Occupation)
	line("Location", p.Background.CurrentLocation)
	line("Time horizon", string(p.Constraints.TimeHorizon))
	line("Risk tolerance", string(p.Constraints.RiskTolerance))
	if d := p.Constraints.HasDependents; d != nil {
		line("Dependents", map[bool]string{true: "yes", false: "no"}[*d])
	}
	line("Advice tone", string(p.Preferences.Tone))
	line("Language", p.Preferences.Language)
	line("Bio", p.Bio)
	line("Since", p.CreatedAt.Format("2006-01-02"))
	return b.String()
}

func runProfileEdit(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p := currentProfile(cmd, s)
	applyProfileFlags(cmd, p)
	if cmd.Flags().Changed("pref-language") {
		p.Preferences.Language, _ = cmd.Flags().GetString("pref-language")
	}
	if err := p.Validate(); err != nil {
		exitErr("profile edit", err)
	}
	updated, err := s.UpdateProfile(cmd.Context(), *p)
	if err != nil {
		exitErr("profile edit", err)
	}
	if jsonOutput() {
		printJSON(updated)
		return
	}
	fmt.Print(formatProfile(updated))
}

func runProfileExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p := currentProfile(cmd, s)
	if err := writeYAML(args, p); err != nil {
		exitErr("profile export", err)
	}
}

func runProfileImport(cmd *cobra.Command, args []string) {
	var p model.Profile
	if err := readYAML(args, &p); err != nil {
		exitErr("profile import", err)
	}
	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		exitErr("profile import", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	existing, err := s.DefaultProfile(cmd.Context())
	var saved *model.Profile
	switch {
	case errors.Is(err, store.ErrNoProfile):
		saved, err = s.CreateProfile(cmd.Context(), p)
	case err != nil:
	default:
		p.ID = existing.ID
		saved, err = s.UpdateProfile(cmd.Context(), p)
	}
	if err != nil {
		exitErr("profile import", err)
	}
	if jsonOutput() {
		printJSON(saved)
		return
	}
	fmt.Printf("Imported profile for %s.\n", saved.Name)
}

// writeYAML encodes v to the file named in args, or stdout.
func writeYAML(args []string, v any) error {
	var w io.Writer = os.Stdout
	if len(args) > 0 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// readYAML decodes the file named in args, or stdin, into v.
func readYAML(args []string, v any) error {
	var r io.Reader = os.Stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}
