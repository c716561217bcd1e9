package cli

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpgate/mcpgate/pkg/tool"
)

var (
	chatUser    string
	chatName    string
	chatRoles   []string
	chatScopes  []string
	chatDomains []string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session against the configured model.
Tool calls requested by the model are executed through the gateway
under the identity given by the --user, --roles, and --scopes flags.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "cli", "user id for tool authorization")
	chatCmd.Flags().StringVar(&chatName, "name", "", "display name (defaults to user id)")
	chatCmd.Flags().StringSliceVar(&chatRoles, "roles", nil, "roles granted to this session")
	chatCmd.Flags().StringSliceVar(&chatScopes, "scopes", nil, "scopes granted to this session")
	chatCmd.Flags().StringSliceVar(&chatDomains, "domains", nil, "restrict the tool menu to these domains")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	p, err := buildGateway()
	if err != nil {
		return err
	}
	defer p.Close()

	identity := tool.Identity{
		ID:       chatUser,
		Username: chatName,
		Roles:    chatRoles,
		Scopes:   chatScopes,
	}
	if identity.Username == "" {
		identity.Username = chatUser
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "MCPGate %s (%s / %s)\n", version, p.cfg.AI.Provider, p.cfg.AI.Model)
	fmt.Fprintln(out, `Type a message, or "exit" to quit.`)

	// Flush the audit buffer on Ctrl-C too.
	ctx := cmd.Context()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	conversationID := ""
	for {
		fmt.Fprint(out, "> ")

		var line string
		var open bool
		select {
		case <-sigCh:
			fmt.Fprintln(out)
			return nil
		case line, open = <-lines:
			if !open {
				fmt.Fprintln(out)
				return nil
			}
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		}

		reply, err := p.gateway.ProcessMessage(ctx, conversationID, line, identity, chatDomains)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		conversationID = reply.ConversationID
		fmt.Fprintln(out, reply.Response)
	}
}
