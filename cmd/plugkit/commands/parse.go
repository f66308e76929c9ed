package commands

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/spf13/cobra"

	"github.com/plugkit/plugkit/react"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Run the ReAct output parser over stdin",
	Long: `Read model output from stdin and print the parsed chunks: plain text
is echoed, recognized actions are printed as one line each. Useful for
debugging prompt formats against the streaming parser.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		parser := react.NewParser()
		for chunk := range parser.Parse(stdinDeltas()) {
			switch c := chunk.(type) {
			case react.Text:
				fmt.Print(string(c))
			case *react.Action:
				input, err := json.Marshal(c.Input)
				if err != nil {
					input = []byte(c.Raw)
				}
				fmt.Printf("\n[action] %s %s\n", c.Name, input)
			}
		}
		fmt.Println()
		return nil
	},
}

// stdinDeltas streams stdin in small reads so parsing behaves like it
// does against a live model stream.
func stdinDeltas() iter.Seq[react.Delta] {
	return func(yield func(react.Delta) bool) {
		reader := bufio.NewReader(os.Stdin)
		buf := make([]byte, 512)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				if !yield(react.Delta{Text: string(buf[:n])}) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					fmt.Fprintln(os.Stderr, "read stdin:", err)
				}
				return
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(parseCmd)
}
