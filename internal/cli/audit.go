package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcpgate/mcpgate/pkg/audit"
)

var (
	auditUser   string
	auditTool   string
	auditDomain string
	auditStatus string
	auditSince  time.Duration
	auditLimit  int
	auditJSON   bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the tool execution audit trail",
	Long: `Query the persisted audit trail. Filters combine conjunctively;
the newest entries within the window are returned up to --limit.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "filter by user id")
	auditCmd.Flags().StringVar(&auditTool, "tool", "", "filter by qualified tool name")
	auditCmd.Flags().StringVar(&auditDomain, "domain", "", "filter by domain")
	auditCmd.Flags().StringVar(&auditStatus, "status", "", "filter by result status")
	auditCmd.Flags().DurationVar(&auditSince, "since", 0, "only entries newer than this age (e.g. 24h)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum entries to return")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "emit raw JSON entries")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	p, err := buildCore()
	if err != nil {
		return err
	}
	defer p.Close()

	filter := audit.Filter{
		UserID:   auditUser,
		ToolName: auditTool,
		Domain:   auditDomain,
		Status:   auditStatus,
		Limit:    auditLimit,
	}
	if auditSince > 0 {
		filter.Since = time.Now().Add(-auditSince)
	}

	entries, err := p.auditor.Query(filter)
	if err != nil {
		return fmt.Errorf("audit query failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if auditJSON {
		enc := json.NewEncoder(out)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	for _, e := range entries {
		errSuffix := ""
		if e.Error != "" {
			errSuffix = " error=" + e.Error
		}
		fmt.Fprintf(out, "%s  %-10s %-28s user=%s %0.1fms%s\n",
			e.Timestamp.Format(time.RFC3339), e.Status, e.ToolName, e.UserID, e.ExecutionTimeMS, errSuffix)
	}
	fmt.Fprintf(out, "\n%d entries\n", len(entries))
	return nil
}
