package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zenprocess/open-lovable-cf/internal/edits"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
	"github.com/zenprocess/open-lovable-cf/internal/parser"
	"github.com/zenprocess/open-lovable-cf/internal/project"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse an AI response without applying it",
	Long: `Parse an AI response and print what an apply would do: the files
with their normalized sandbox paths, packages, commands and precision
edits. Nothing is provisioned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

var parseFormat string

func init() {
	parseCmd.Flags().StringVarP(&parseFormat, "format", "f", "json", "Output format: json or yaml")
	rootCmd.AddCommand(parseCmd)
}

// parseOutput is the printed form of a parsed response.
type parseOutput struct {
	Files       []parsedFile        `json:"files" yaml:"files"`
	Packages    []string            `json:"packages" yaml:"packages"`
	Commands    []string            `json:"commands" yaml:"commands"`
	Edits       []edits.Instruction `json:"edits,omitempty" yaml:"edits,omitempty"`
	Structure   string              `json:"structure,omitempty" yaml:"structure,omitempty"`
	Explanation string              `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Template    string              `json:"template,omitempty" yaml:"template,omitempty"`
}

type parsedFile struct {
	parser.File `yaml:",inline"`
	Target      string `json:"target" yaml:"target"`
	Size        int    `json:"size" yaml:"size"`
}

func buildParseOutput(text string) parseOutput {
	resp := parser.Parse(text)
	out := parseOutput{
		Files:       make([]parsedFile, 0, len(resp.Files)),
		Packages:    resp.Packages,
		Commands:    resp.Commands,
		Edits:       edits.Extract(text),
		Structure:   resp.Structure,
		Explanation: resp.Explanation,
		Template:    resp.Template,
	}
	for _, f := range resp.Files {
		out.Files = append(out.Files, parsedFile{
			File:   f,
			Target: project.NormalizePath(f.Path),
			Size:   len(f.Content),
		})
	}
	if out.Packages == nil {
		out.Packages = []string{}
	}
	if out.Commands == nil {
		out.Commands = []string{}
	}
	return out
}

func runParse(cmd *cobra.Command, args []string) error {
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	text, err := readResponse(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}
	return writeParseOutput(cmd.OutOrStdout(), buildParseOutput(text), parseFormat)
}

func writeParseOutput(w io.Writer, out parseOutput, format string) error {
	switch format {
	case "json":
		return writeJSONIndent(w, out)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		return enc.Close()
	}
	return errors.ValidationError(fmt.Sprintf("unknown format %q (use json or yaml)", format))
}
