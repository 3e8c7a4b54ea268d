package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flair-helper/flairhelper/internal/configschema"
	"github.com/flair-helper/flairhelper/internal/ingestor"
	"github.com/flair-helper/flairhelper/pkg/console"
)

// newConfigCommand creates the "config" command group.
func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with flair-action configuration documents",
	}
	cmd.AddCommand(newConfigCheckCommand())
	return cmd
}

// newConfigCheckCommand creates "config check <community> <file>": a
// dry run of the ingest pipeline's parse-canonicalize-validate steps
// against a local file, without touching the wiki or any store.
func newConfigCheckCommand() *cobra.Command {
	var showYAML bool

	cmd := &cobra.Command{
		Use:   "check <community> <file>",
		Short: "Validate a config file the way the ingestor would, without publishing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			community, path := args[0], args[1]

			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			cfg, fromLegacy, err := ingestor.ParseDocument(string(content))
			if err != nil {
				fmt.Println(console.FormatErrorMessage(fmt.Sprintf("%s: could not parse: %v", community, err)))
				return err
			}

			canonical, err := cfg.MarshalCanonical()
			if err != nil {
				fmt.Println(console.FormatErrorMessage(fmt.Sprintf("%s: could not serialize: %v", community, err)))
				return err
			}

			if err := configschema.Validate(canonical); err != nil {
				fmt.Println(console.FormatErrorMessage(fmt.Sprintf("%s: schema violation: %v", community, err)))
				return err
			}

			format := "JSON"
			if fromLegacy {
				format = "legacy YAML"
			}
			fmt.Println(console.FormatSuccessMessage(fmt.Sprintf("%s: valid (%s, %d rules)", community, format, len(cfg.Rules))))

			if showYAML {
				rendered, err := yaml.Marshal(cfg)
				if err != nil {
					return fmt.Errorf("render config as yaml: %w", err)
				}
				fmt.Println(string(rendered))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showYAML, "yaml", false, "Print the parsed configuration back out as YAML for review")
	return cmd
}
