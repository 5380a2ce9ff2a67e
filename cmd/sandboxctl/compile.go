package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"basegraph.app/sandbox/internal/http/dto"
	"basegraph.app/sandbox/internal/schema"
)

var (
	compileFile      string
	compileNamespace string
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile a table definition without touching any database",
	Long: "Reads a table definition (the body accepted by POST /api/workspace/:id/table) and prints " +
		"the statements it compiles to, or every validation error found.",
	Example: "  sandboxctl compile -f users.json --namespace ws_42\n  cat users.json | sandboxctl compile -f -",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd.InOrStdin(), compileFile)
		if err != nil {
			return err
		}

		var req dto.CreateTableRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("decoding table definition: %w", err)
		}

		res := schema.Compile(req.ToModel(), compileNamespace)
		out := cmd.OutOrStdout()
		for _, stmt := range res.Statements {
			fmt.Fprintf(out, "-- %s\n%s;\n\n", stmt.Kind, stmt.SQL)
		}
		if !res.Success {
			for _, e := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e.Error())
			}
			return fmt.Errorf("compilation failed with %d error(s)", len(res.Errors))
		}
		return nil
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the table definition file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reflector := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		s := reflector.Reflect(&dto.CreateTableRequest{})
		s.Title = "Sandbox table definition"
		s.Description = "Declarative table accepted by sandboxctl compile and POST /api/workspace/:id/table."
		return printJSON(cmd.OutOrStdout(), s)
	},
}

func init() {
	compileCmd.Flags().StringVarP(&compileFile, "file", "f", "", "Table definition JSON file, or - for stdin")
	compileCmd.Flags().StringVar(&compileNamespace, "namespace", "ws_preview", "Namespace to qualify the statements with")
	_ = compileCmd.MarkFlagRequired("file")
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return raw, nil
}
