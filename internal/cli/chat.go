package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/munger/internal/advisor"
	"github.com/rcliao/munger/internal/llm"
	"github.com/rcliao/munger/internal/render"
	"github.com/rcliao/munger/internal/store"
)

const chatHelp = `Commands:
  /new    start a new conversation
  /help   show this help
  /quit   end the session`

func init() {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk it through, turn by turn",
		Run:   runChat,
	}
	cmd.Flags().Bool("resume", false, "Continue your most recent conversation")

	RootCmd.AddCommand(cmd)
}

func runChat(cmd *cobra.Command, args []string) {
	resume, _ := cmd.Flags().GetBool("resume")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	profile := currentProfile(cmd, s)
	a, err := newAdvisor(cmd, s)
	if err != nil {
		exitErr("advisor", err)
	}

	var convID string
	if resume {
		conv, err := s.LatestConversation(cmd.Context(), profile.ID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			fmt.Println("No earlier conversation; starting a new one.")
		case err != nil:
			exitErr("resume", err)
		default:
			convID = conv.ID
			fmt.Printf("Resuming conversation from %s.\n", conv.StartedAt.Local().Format("2006-01-02 15:04"))
		}
	}

	fmt.Println(render.Heading(fmt.Sprintf("Hello %s. What's on your mind?", profile.Name)))
	fmt.Println("Type /help for commands.")

	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\nYou: ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			endChat(cmd, s, convID)
			return
		case "/new":
			endChat(cmd, s, convID)
			convID = ""
			fmt.Println("Started a new conversation.")
			continue
		case "/help":
			fmt.Println(chatHelp)
			continue
		}

		fmt.Print("\nMunger: ")
		ans, err := a.Chat(cmd.Context(), advisor.ChatParams{
			ConversationID: convID,
			UserID:         profile.ID,
			Message:        line,
			OnDelta:        printDelta,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", llm.FriendlyError(err))
			continue
		}
		convID = ans.ConversationID
		fmt.Println()
		printModelsUsed(ans.ModelsUsed)
	}
	endChat(cmd, s, convID)
}

func endChat(cmd *cobra.Command, s store.Store, convID string) {
	if convID == "" {
		return
	}
	if err := s.EndConversation(cmd.Context(), convID); err != nil {
		fmt.Fprintf(os.Stderr, "warning: end conversation: %v\n", err)
	}
}
