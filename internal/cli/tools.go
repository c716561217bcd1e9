package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mcpgate/mcpgate/pkg/tool"
)

var toolsRoles []string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List registered tools by domain",
	Long: `List the tools registered in the gateway, grouped by domain.
With --roles the listing is narrowed to what that role set would see;
without it every non-deprecated tool is shown.`,
	RunE: runTools,
}

func init() {
	toolsCmd.Flags().StringSliceVar(&toolsRoles, "roles", nil, "show the tool menu as seen by these roles")
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	p, err := buildCore()
	if err != nil {
		return err
	}
	defer p.Close()

	out := cmd.OutOrStdout()

	if len(toolsRoles) > 0 {
		descriptors := p.registry.ForLLM(nil, toolsRoles)
		fmt.Fprintf(out, "Tools visible to roles %v:\n", toolsRoles)
		for _, d := range descriptors {
			fmt.Fprintf(out, "  %-28s %s\n", d.Function.Name, d.Function.Description)
		}
		fmt.Fprintf(out, "\n%d tools\n", len(descriptors))
		return nil
	}

	byDomain := p.discovery.ByDomain(cmd.Context())
	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}
	sort.Strings(domains)

	total := 0
	for _, domain := range domains {
		fmt.Fprintf(out, "%s:\n", domain)
		for _, d := range byDomain[domain] {
			access := ""
			if def := p.registry.Get(d.Function.Name); def != nil {
				access = " [" + describePermission(def.Permissions) + "]"
			}
			fmt.Fprintf(out, "  %-28s %s%s\n", d.Function.Name, d.Function.Description, access)
			total++
		}
	}
	fmt.Fprintf(out, "\n%d tools in %d domains\n", total, len(domains))
	return nil
}

// describePermission renders a tool's access requirements for display.
func describePermission(p tool.Permission) string {
	s := string(p.Level)
	if len(p.Roles) > 0 {
		s += fmt.Sprintf(" roles=%v", p.Roles)
	}
	if len(p.Scopes) > 0 {
		s += fmt.Sprintf(" scopes=%v", p.Scopes)
	}
	return s
}
