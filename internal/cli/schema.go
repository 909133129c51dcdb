package cli

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vparse/vparse/internal/api"
	"github.com/vparse/vparse/internal/config"
	apperrors "github.com/vparse/vparse/internal/errors"
)

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().StringP("type", "t", "request", "Schema to print (request, response, error, config)")
	lo.Must0(schemaCmd.RegisterFlagCompletionFunc("type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Keys(schemaTargets), cobra.ShellCompDirectiveDefault
	}))
}

var schemaTargets = map[string]any{
	"request":  &api.ParseRequest{},
	"response": &api.ParseResponse{},
	"error":    &apperrors.ErrorResponse{},
	"config":   &config.Config{},
}

var durationType = reflect.TypeOf(config.Duration{})

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print JSON schemas of the API payloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := lo.Must(cmd.Flags().GetString("type"))
		value, ok := schemaTargets[target]
		if !ok {
			return fmt.Errorf("unknown schema type %q", target)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		tag := "json"
		if target == "config" {
			tag = "toml"
		}
		return enc.Encode(newReflector(tag).Reflect(value))
	},
}

func newReflector(tag string) *jsonschema.Reflector {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.FieldNameTag = tag
	reflector.Namer = func(t reflect.Type) string {
		return t.Name()
	}
	reflector.Mapper = func(t reflect.Type) *jsonschema.Schema {
		if t == durationType {
			return &jsonschema.Schema{Type: "string", Description: "Go duration, e.g. 1500ms"}
		}
		return nil
	}
	return reflector
}
