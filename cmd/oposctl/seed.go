package main

import (
	"bytes"
	"fmt"
	"os"

	"oposiciones/queries"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml>",
	Short: "Upsert oposiciones, laws, topics and scopes from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog(args[0])
		if err != nil {
			return err
		}
		report, err := queries.SeedCatalog(cmd.Context(), env, cat)
		if err != nil {
			return err
		}
		printResult(report, "seeded %d laws, %d oposiciones, %d topics, %d scopes",
			report.Laws, report.Oposiciones, report.Topics, report.Scopes)
		return nil
	},
}

func loadCatalog(path string) (queries.Catalog, error) {
	var cat queries.Catalog
	b, err := os.ReadFile(path)
	if err != nil {
		return cat, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cat); err != nil {
		return cat, fmt.Errorf("parse %s: %w", path, err)
	}
	return cat, nil
}
