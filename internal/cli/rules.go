package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/callaudit/internal/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate rule tables",
}

var rulesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective rule table as YAML",
	Long: `Show prints the rule table that scan, batch and serve would use: the
--rules file if given, otherwise the built-in table. The output is a valid
rule file and can be used as a starting point for a custom table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		table, err := rules.Load(cfg.Rules.Path)
		if err != nil {
			return err
		}

		data, err := table.Marshal()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# version: %s\n# hash:    %s\n", table.Version(), table.Hash())
		_, err = out.Write(data)
		return err
	},
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a rule table file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := rules.Load(args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		triggers := len(table.Identity().Triggers)
		for _, c := range table.Categories() {
			triggers += len(c.Triggers)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (version %s, %d categories, %d triggers)\n",
			args[0], table.Version(), len(table.Categories()), triggers)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesShowCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
}
