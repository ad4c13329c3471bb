package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create your profile",
		Long:  "Create your profile. Prompts on stdin unless --name is given.",
		Run:   runInit,
	}

	addProfileFlags(cmd)
	cmd.Flags().Bool("force", false, "Replace an existing profile")

	RootCmd.AddCommand(cmd)
}

// addProfileFlags registers the flags shared by init and profile edit.
func addProfileFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Your name")
	cmd.Flags().Int("age", 0, "Age")
	cmd.Flags().String("career-stage", "", "Career stage: early, mid, senior, executive, retired")
	cmd.Flags().String("industry", "", "Industry")
	cmd.Flags().String("occupation", "", "Occupation")
	cmd.Flags().String("location", "", "Current location")
	cmd.Flags().String("horizon", "", "Time horizon: short, medium, long, very_long")
	cmd.Flags().String("risk", "", "Risk tolerance: low, medium, high")
	cmd.Flags().String("tone", "", "Advice tone: blunt, balanced, gentle")
	cmd.Flags().String("bio", "", "A few sentences about yourself")
	cmd.Flags().Bool("dependents", false, "You have dependents")
}

// applyProfileFlags copies every flag the user set onto p.
func applyProfileFlags(cmd *cobra.Command, p *model.Profile) {
	f := cmd.Flags()
	if f.Changed("name") {
		p.Name, _ = f.GetString("name")
	}
	if f.Changed("age") {
		age, _ := f.GetInt("age")
		p.Background.Age = &age
	}
	if f.Changed("career-stage") {
		v, _ := f.GetString("career-stage")
		p.Background.CareerStage = model.CareerStage(v)
	}
	if f.Changed("industry") {
		p.Background.Industry, _ = f.GetString("industry")
	}
	if f.Changed("occupation") {
		p.Background.Occupation, _ = f.GetString("occupation")
	}
	if f.Changed("location") {
		p.Background.CurrentLocation, _ = f.GetString("location")
	}
	if f.Changed("horizon") {
		v, _ := f.GetString("horizon")
		p.Constraints.TimeHorizon = model.TimeHorizon(v)
	}
	if f.Changed("risk") {
		v, _ := f.GetString("risk")
		p.Constraints.RiskTolerance = model.RiskTolerance(v)
	}
	if f.Changed("tone") {
		v, _ := f.GetString("tone")
		p.Preferences.Tone = model.AdviceTone(v)
	}
	if f.Changed("bio") {
		p.Bio, _ = f.GetString("bio")
	}
	if f.Changed("dependents") {
		v, _ := f.GetBool("dependents")
		p.Constraints.HasDependents = &v
	}
}

func runInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	existing, err := s.DefaultProfile(cmd.Context())
	switch {
	case errors.Is(err, store.ErrNoProfile):
	case err != nil:
		exitErr("init", err)
	case !force:
		exitErr("init", fmt.Errorf("profile for %s already exists (use 'munger profile edit' or --force)", existing.Name))
	}

	p := model.NewProfile("")
	p.Preferences.Language = cfg.Language
	if cmd.Flags().Changed("name") {
		applyProfileFlags(cmd, &p)
	} else {
		fmt.Println(render.Heading("Welcome. Let's get to know you."))
		fmt.Println()
		interviewProfile(newPrompter(os.Stdin, os.Stdout), &p)
	}
	if err := p.Validate(); err != nil {
		exitErr("init", err)
	}

	if existing != nil {
		if err := s.DeleteProfile(cmd.Context(), existing.ID); err != nil {
			exitErr("replace profile", err)
		}
	}
	created, err := s.CreateProfile(cmd.Context(), p)
	if err != nil {
		exitErr("init", err)
	}

	if jsonOutput() {
		printJSON(created)
		return
	}
	fmt.Printf("\nProfile created for %s.\n", created.Name)
	fmt.Println("Next: 'munger charter edit --value ...' to record your values, 'munger ingest seed' to load wisdom.")
}

func interviewProfile(pr *prompter, p *model.Profile) {
	for p.Name == "" && !pr.eof {
		p.Name = pr.ask("Your name", "")
	}
	if v := pr.ask("Age (blank to skip)", ""); v != "" {
		if age, err := strconv.Atoi(v); err == nil {
			p.Background.Age = &age
		}
	}
	stages := make([]string, len(model.ValidCareerStages))
	for i, s := range model.ValidCareerStages {
		stages[i] = string(s)
	}
	p.Background.CareerStage = model.CareerStage(pr.choose("Career stage", stages, string(model.CareerMid)))
	p.Background.Industry = pr.ask("Industry", "")
	p.Background.Occupation = pr.ask("Occupation", "")
	p.Background.CurrentLocation = pr.ask("Where do you live", "")
	p.Constraints.TimeHorizon = model.TimeHorizon(pr.choose("Planning horizon", []string{"short", "medium", "long", "very_long"}, string(p.Constraints.TimeHorizon)))
	p.Constraints.RiskTolerance = model.RiskTolerance(pr.choose("Risk tolerance", []string{"low", "medium", "high"}, string(p.Constraints.RiskTolerance)))
	deps := pr.confirm("Do you have dependents", false)
	p.Constraints.HasDependents = &deps
	p.Preferences.Tone = model.AdviceTone(pr.choose("How blunt should advice be", []string{"blunt", "balanced", "gentle"}, string(p.Preferences.Tone)))
	p.Bio = pr.ask("Anything else worth knowing (blank to skip)", "")
}
