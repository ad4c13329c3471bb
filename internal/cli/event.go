package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/munger/internal/model"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/store"
)

const dateLayout = "2006-01-02"

func init() {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Record and review life events",
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Record a life event",
		Run:   runEventAdd,
	}
	add.Flags().String("title", "", "Short title (required)")
	add.Flags().String("desc", "", "What happened")
	add.Flags().String("category", string(model.EventOther), "Category: "+eventCategoryList())
	add.Flags().String("date", "", "Date as YYYY-MM-DD (default: today)")
	add.Flags().Int("significance", model.DefaultSignificance, "Significance 1-10")
	add.Flags().String("emotions", "", "Comma-separated emotions")
	add.Flags().String("people", "", "Comma-separated people involved")
	add.Flags().String("lessons", "", "Lessons learned")
	add.Flags().String("follow-up", "", "Follow-up date as YYYY-MM-DD")
	add.MarkFlagRequired("title")

	quick := &cobra.Command{
		Use:   "quick",
		Short: "Record a life event interactively",
		Run:   runEventQuick,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List life events, newest first",
		Run:   runEventList,
	}
	list.Flags().String("category", "", "Filter by category")
	list.Flags().Int("min-significance", 0, "Only events at least this significant")
	list.Flags().String("since", "", "Only events on or after YYYY-MM-DD")
	list.Flags().Int("limit", 20, "Max results")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one event and its links",
		Args:  cobra.ExactArgs(1),
		Run:   runEventShow,
	}

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		Run:   runEventRm,
	}

	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Find events by text",
		Args:  cobra.MinimumNArgs(1),
		Run:   runEventSearch,
	}
	search.Flags().Int("limit", 20, "Max results")

	link := &cobra.Command{
		Use:   "link <from-id> <to-id>",
		Short: "Create or remove a relation between events",
		Args:  cobra.ExactArgs(2),
		Run:   runEventLink,
	}
	link.Flags().StringP("rel", "r", "relates_to", "Relation: relates_to, led_to, follows_up, contradicts")
	link.Flags().Bool("rm", false, "Remove the link")

	cmd.AddCommand(add, quick, list, show, rm, search, link)
	RootCmd.AddCommand(cmd)
}

func eventCategoryList() string {
	names := make([]string, len(model.ValidEventCategories))
	for i, c := range model.ValidEventCategories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// parseCategoryOrOther falls back to other for unknown categories.
func parseCategoryOrOther(s string) model.EventCategory {
	c, err := model.ParseEventCategory(s)
	if err != nil {
		logger.Warn("unknown event category, using other", zap.String("category", s))
		fmt.Fprintf(os.Stderr, "warning: unknown category %q, using %q\n", s, model.EventOther)
		return model.EventOther
	}
	return c
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}

func runEventAdd(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	title, _ := f.GetString("title")
	desc, _ := f.GetString("desc")
	category, _ := f.GetString("category")
	dateStr, _ := f.GetString("date")
	significance, _ := f.GetInt("significance")
	emotions, _ := f.GetString("emotions")
	people, _ := f.GetString("people")
	lessons, _ := f.GetString("lessons")
	followUp, _ := f.GetString("follow-up")

	date, err := parseDate(dateStr)
	if err != nil {
		exitErr("event add", err)
	}
	e := model.LifeEvent{
		Date:           date,
		Title:          strings.TrimSpace(title),
		Description:    desc,
		Category:       parseCategoryOrOther(category),
		Significance:   significance,
		Emotions:       splitList(emotions),
		PeopleInvolved: splitList(people),
		LessonsLearned: lessons,
	}
	if followUp != "" {
		t, err := parseDate(followUp)
		if err != nil {
			exitErr("event add", err)
		}
		e.FollowUpDate = &t
	}
	saveEvent(cmd, e)
}

func runEventQuick(cmd *cobra.Command, args []string) {
	pr := newPrompter(os.Stdin, os.Stdout)
	fmt.Println(render.Heading("What happened?"))

	var e model.LifeEvent
	for e.Title == "" && !pr.eof {
		e.Title = pr.ask("Title", "")
	}
	e.Description = pr.ask("Describe it", "")
	e.Category = parseCategoryOrOther(pr.ask("Category ("+eventCategoryList()+")", string(model.EventOther)))
	sig, err := strconv.Atoi(pr.ask("Significance 1-10", strconv.Itoa(model.DefaultSignificance)))
	if err != nil {
		sig = model.DefaultSignificance
	}
	e.Significance = sig
	e.Emotions = splitList(pr.ask("How did it feel (comma-separated)", ""))
	e.LessonsLearned = pr.ask("What did you learn", "")
	e.Date, _ = parseDate("")
	saveEvent(cmd, e)
}

func saveEvent(cmd *cobra.Command, e model.LifeEvent) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e.UserID = currentProfile(cmd, s).ID
	if err := e.Validate(); err != nil {
		exitErr("event", err)
	}
	created, err := s.CreateEvent(cmd.Context(), e)
	if err != nil {
		exitErr("event", err)
	}
	if jsonOutput() {
		printJSON(created)
		return
	}
	fmt.Printf("Recorded %s (%s).\n", created.Title, created.ID)
}

func runEventList(cmd *cobra.Command, args []string) {
	f := cmd.Flags()
	category, _ := f.GetString("category")
	minSig, _ := f.GetInt("min-significance")
	since, _ := f.GetString("since")
	limit, _ := f.GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	p := store.ListEventsParams{
		UserID:          currentProfile(cmd, s).ID,
		MinSignificance: minSig,
		Limit:           limit,
	}
	if category != "" {
		c, err := model.ParseEventCategory(category)
		if err != nil {
			exitErr("event list", err)
		}
		p.Category = c
	}
	if since != "" {
		t, err := parseDate(since)
		if err != nil {
			exitErr("event list", err)
		}
		p.Since = &t
	}

	events, err := s.ListEvents(cmd.Context(), p)
	if err != nil {
		exitErr("event list", err)
	}
	printEvents(events)
}

func printEvents(events []model.LifeEvent) {
	if jsonOutput() {
		if events == nil {
			events = []model.LifeEvent{}
		}
		printJSON(events)
		return
	}
	if len(events) == 0 {
		fmt.Println("No events.")
		return
	}
	for _, e := range events {
		fmt.Printf("%s  %-10s %2d/10  %-16s %s\n", e.ID, e.Date.Format(dateLayout), e.Significance, e.Category, e.Title)
	}
}

func runEventShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	e, err := s.GetEvent(cmd.Context(), args[0])
	if err != nil {
		exitErr("event show", err)
	}
	links, err := s.EventLinks(cmd.Context(), e.ID)
	if err != nil {
		exitErr("event links", err)
	}
	if jsonOutput() {
		printJSON(struct {
			*model.LifeEvent
			Links []store.EventLink `json:"links"`
		}{e, links})
		return
	}

	fmt.Println(render.Heading(e.Title))
	fmt.Printf("  %s, %s, significance %d/10\n", e.Date.Format(dateLayout), e.Category, e.Significance)
	if e.Description != "" {
		fmt.Printf("\n  %s\n", e.Description)
	}
	if len(e.Emotions) > 0 {
		fmt.Printf("\n  Felt: %s\n", strings.Join(e.Emotions, ", "))
	}
	if len(e.PeopleInvolved) > 0 {
		fmt.Printf("  People: %s\n", strings.Join(e.PeopleInvolved, ", "))
	}
	if e.LessonsLearned != "" {
		fmt.Printf("  Lessons: %s\n", e.LessonsLearned)
	}
	if e.FollowUpDate != nil {
		fmt.Printf("  Follow up: %s\n", e.FollowUpDate.Format(dateLayout))
	}
	for _, l := range links {
		fmt.Printf("  %s -[%s]-> %s\n", l.FromID, l.Rel, l.ToID)
	}
}

func runEventRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.DeleteEvent(cmd.Context(), args[0]); err != nil {
		exitErr("event rm", err)
	}
	if jsonOutput() {
		fmt.Printf(`{"ok":true,"deleted":%q}`+"\n", args[0])
		return
	}
	fmt.Printf("Deleted %s.\n", args[0])
}

func runEventSearch(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	events, err := s.SearchEvents(cmd.Context(), store.SearchParams{
		UserID: currentProfile(cmd, s).ID,
		Query:  strings.Join(args, " "),
		Limit:  limit,
	})
	if err != nil {
		exitErr("event search", err)
	}
	printEvents(events)
}

func runEventLink(cmd *cobra.Command, args []string) {
	rel, _ := cmd.Flags().GetString("rel")
	rm, _ := cmd.Flags().GetBool("rm")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	link, err := s.LinkEvents(cmd.Context(), store.LinkParams{
		FromID: args[0],
		ToID:   args[1],
		Rel:    rel,
		Remove: rm,
	})
	if err != nil {
		exitErr("event link", err)
	}
	if jsonOutput() {
		printJSON(link)
		return
	}
	verb := "Linked"
	if rm {
		verb = "Unlinked"
	}
	fmt.Printf("%s %s -[%s]-> %s\n", verb, link.FromID, link.Rel, link.ToID)
}
