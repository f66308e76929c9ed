package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugkit/plugkit/plugin"
)

var flagPluginsRoot string

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect plugin manifests",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Discover and list plugin manifests under a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		plugins, err := plugin.Discover(flagPluginsRoot)
		if err != nil {
			return err
		}
		if len(plugins) == 0 {
			fmt.Println("no plugins found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tVERSION\tDESCRIPTION")
		for _, p := range plugins {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.Kind, p.Version, p.Description)
		}
		return w.Flush()
	},
}

func init() {
	pluginsListCmd.Flags().StringVar(&flagPluginsRoot, "root", ".", "directory to search for plugin manifests")
	pluginsCmd.AddCommand(pluginsListCmd)
	rootCmd.AddCommand(pluginsCmd)
}
