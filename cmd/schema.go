package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nprint.dev/nprint/internal/config"
	"nprint.dev/nprint/internal/core/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the global column schema as YAML",
	Long: `Prints the column layout the configured protocol set produces: every
field, its bit width and its global column range. Useful for labeling model
features and for verifying that a schema extension only appended columns.`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

type schemaDoc struct {
	TotalColumns int              `yaml:"total_columns"`
	Protocols    []schemaProtocol `yaml:"protocols"`
}

type schemaProtocol struct {
	Name    string        `yaml:"name"`
	Columns string        `yaml:"columns"`
	Fields  []schemaField `yaml:"fields"`
}

type schemaField struct {
	Name  string `yaml:"name"`
	Bits  int    `yaml:"bits"`
	First int    `yaml:"first_column"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	protos, err := cfg.ProtocolIDs()
	if err != nil {
		return err
	}
	s, err := schema.Build(protos...)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(buildSchemaDoc(s))
}

func buildSchemaDoc(s *schema.Schema) schemaDoc {
	doc := schemaDoc{TotalColumns: s.TotalWidth()}
	for _, p := range s.Protocols() {
		r, _ := s.Columns(p)
		sp := schemaProtocol{
			Name:    p.String(),
			Columns: rangeString(r),
		}
		for _, d := range s.Fields(p) {
			sp.Fields = append(sp.Fields, schemaField{
				Name:  d.Name,
				Bits:  d.BitWidth,
				First: r.Start + d.BitOffset,
			})
		}
		doc.Protocols = append(doc.Protocols, sp)
	}
	return doc
}

func rangeString(r schema.Range) string {
	return fmt.Sprintf("%d-%d", r.Start, r.End()-1)
}
