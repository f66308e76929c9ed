package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugkit/plugkit/llm"
	"github.com/plugkit/plugkit/tools"
)

var flagToolInput string

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List and invoke builtin tools",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the builtin tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, tool := range tools.AllTools() {
			fmt.Fprintf(w, "%s\t%s\n", tool.Name(), tool.Description())
		}
		return w.Flush()
	},
}

var toolsInvokeCmd = &cobra.Command{
	Use:   "invoke <name>",
	Short: "Invoke a tool with a JSON input document",
	Example: `  plugkit tools invoke web_fetch --input '{"url": "https://example.com"}'
  plugkit tools invoke jq --input '{"json": "[1,2,3]", "query": "add"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := llm.NewToolRegistry()
		registry.Register(tools.AllTools()...)

		tool, ok := registry.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown tool %q", args[0])
		}
		if !json.Valid([]byte(flagToolInput)) {
			return fmt.Errorf("--input is not valid JSON")
		}

		out, err := tool.Execute(cmd.Context(), json.RawMessage(flagToolInput))
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	},
}

func init() {
	toolsInvokeCmd.Flags().StringVar(&flagToolInput, "input", "{}", "tool input as a JSON document")
	toolsCmd.AddCommand(toolsListCmd, toolsInvokeCmd)
	rootCmd.AddCommand(toolsCmd)
}
