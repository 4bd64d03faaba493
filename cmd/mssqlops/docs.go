// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"mssqlops-cli/internal/issue"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed docs/*.md
var docsFS embed.FS

var docsCmd = &cobra.Command{
	Use:   "docs [topic]",
	Short: "Show reference documentation",
	Long: `Render an embedded reference page in the terminal.

Run without arguments to list the available topics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDocs,
}

func docsTopics() ([]string, error) {
	entries, err := docsFS.ReadDir("docs")
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(entries))
	for _, e := range entries {
		topics = append(topics, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(topics)
	return topics, nil
}

func runDocs(cmd *cobra.Command, args []string) error {
	topics, err := docsTopics()
	if err != nil {
		return issue.WrapWithOperation(err, "list documentation topics")
	}

	if len(args) == 0 {
		fmt.Println(TitleStyle.Render("Available topics:"))
		for _, t := range topics {
			fmt.Println("  " + t)
		}
		return nil
	}

	topic := args[0]
	content, err := docsFS.ReadFile("docs/" + topic + ".md")
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("load documentation topic").
			WithResource(topic).
			WithSuggestion("Run 'mssqlops docs' to list the available topics").
			Wrap(err).
			BuildError()
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return issue.WrapWithOperation(err, "create markdown renderer")
	}
	out, err := r.Render(string(content))
	if err != nil {
		return issue.WrapWithOperation(err, "render documentation")
	}
	fmt.Print(out)
	return nil
}
