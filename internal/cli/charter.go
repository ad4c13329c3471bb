package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/store"
)

// charterLists maps flag stems to the charter list they edit.
var charterLists = []struct {
	flag  string
	label string
	list  func(c *model.Charter) *[]string
}{
	{"value", "Values", func(c *model.Charter) *[]string { return &c.Values }},
	{"non-negotiable", "Non-negotiables", func(c *model.Charter) *[]string { return &c.NonNegotiables }},
	{"goal", "Long-term goals", func(c *model.Charter) *[]string { return &c.LongTermGoals }},
	{"anti-goal", "Anti-goals", func(c *model.Charter) *[]string { return &c.AntiGoals }},
	{"remember", "Remember", func(c *model.Charter) *[]string { return &c.RememberTopics }},
	{"forget", "Forget", func(c *model.Charter) *[]string { return &c.ForgetTopics }},
	{"sensitive", "Sensitive", func(c *model.Charter) *[]string { return &c.SensitiveTopics }},
}

func init() {
	cmd := &cobra.Command{
		Use:   "charter",
		Short: "Show or change your values charter",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your charter",
		Run:   runCharterShow,
	}
	edit := &cobra.Command{
		Use:   "edit",
		Short: "Add or remove charter items",
		Long: `Add or remove charter items. Each list takes --<list> to append and
--rm-<list> to remove, e.g. --value honesty --rm-goal "retire at 40".
Prints a diff of the change before saving.`,
		Run: runCharterEdit,
	}
	for _, l := range charterLists {
		edit.Flags().StringSlice(l.flag, nil, "Add to "+strings.ToLower(l.label))
		edit.Flags().StringSlice("rm-"+l.flag, nil, "Remove from "+strings.ToLower(l.label))
	}
	edit.Flags().Bool("dry-run", false, "Print the diff without saving")

	export := &cobra.Command{
		Use:   "export [file]",
		Short: "Write your charter as YAML (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runCharterExport,
	}
	imp := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace your charter from YAML (stdin by default)",
		Args:  cobra.MaximumNArgs(1),
		Run:   runCharterImport,
	}

	cmd.AddCommand(show, edit, export, imp)
	RootCmd.AddCommand(cmd)
}

// loadCharter returns the user's charter, or an empty one bound to the user.
func loadCharter(cmd *cobra.Command, s store.Store, userID string) *model.Charter {
	c, err := s.CharterByUser(cmd.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return &model.Charter{UserID: userID}
	}
	if err != nil {
		exitErr("charter", err)
	}
	return c
}

func runCharterShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c := loadCharter(cmd, s, currentProfile(cmd, s).ID)
	if jsonOutput() {
		printJSON(c)
		return
	}
	if !c.Defined() {
		fmt.Println("No charter yet. Add one with 'munger charter edit --value ...'.")
		return
	}
	fmt.Print(formatCharter(c))
}

func formatCharter(c *model.Charter) string {
	var b strings.Builder
	for _, l := range charterLists {
		items := *l.list(c)
		if len(items) == 0 {
			continue
		}
		b.WriteString(render.Heading(l.label) + "\n")
		for i, item := range items {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, item)
		}
	}
	return b.String()
}

func runCharterEdit(cmd *cobra.Command, args []string) {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	before := loadCharter(cmd, s, currentProfile(cmd, s).ID)
	after := cloneCharter(*before)
	for _, l := range charterLists {
		add, _ := cmd.Flags().GetStringSlice(l.flag)
		remove, _ := cmd.Flags().GetStringSlice("rm-" + l.flag)
		list := l.list(&after)
		*list = editList(*list, add, remove)
	}

	diff, err := charterDiff(*before, after)
	if err != nil {
		exitErr("charter diff", err)
	}
	if diff == "" {
		fmt.Println("No changes.")
		return
	}
	fmt.Print(diff)
	if dryRun {
		return
	}
	if _, err := s.SaveCharter(cmd.Context(), after); err != nil {
		exitErr("charter edit", err)
	}
	fmt.Println("Charter saved.")
}

func runCharterExport(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	c := loadCharter(cmd, s, currentProfile(cmd, s).ID)
	if err := writeYAML(args, c); err != nil {
		exitErr("charter export", err)
	}
}

func runCharterImport(cmd *cobra.Command, args []string) {
	var in model.Charter
	if err := readYAML(args, &in); err != nil {
		exitErr("charter import", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	before := loadCharter(cmd, s, currentProfile(cmd, s).ID)
	in.ID, in.UserID = before.ID, before.UserID
	diff, err := charterDiff(*before, in)
	if err != nil {
		exitErr("charter diff", err)
	}
	fmt.Print(diff)
	if _, err := s.SaveCharter(cmd.Context(), in); err != nil {
		exitErr("charter import", err)
	}
	fmt.Println("Charter saved.")
}

// editList removes items case-insensitively, then appends new items that
// are not already present.
func editList(list, add, remove []string) []string {
	out := make([]string, 0, len(list)+len(add))
	for _, item := range list {
		if !containsFold(remove, item) {
			out = append(out, item)
		}
	}
	for _, item := range add {
		item = strings.TrimSpace(item)
		if item != "" && !containsFold(out, item) {
			out = append(out, item)
		}
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

func cloneCharter(c model.Charter) model.Charter {
	for _, l := range charterLists {
		list := l.list(&c)
		*list = append([]string(nil), *list...)
	}
	return c
}

// charterDiff is a unified diff of the YAML forms. Empty means no change.
func charterDiff(before, after model.Charter) (string, error) {
	a, err := yaml.Marshal(before)
	if err != nil {
		return "", err
	}
	b, err := yaml.Marshal(after)
	if err != nil {
		return "", err
	}
	if string(a) == string(b) {
		return "", nil
	}
	edits := myers.ComputeEdits(span.URIFromPath("charter.yaml"), string(a), string(b))
	return fmt.Sprint(gotextdiff.ToUnified("charter.yaml", "charter.yaml", string(a), edits)), nil
}
