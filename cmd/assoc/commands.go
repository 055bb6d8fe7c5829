package main

import (
	"fmt"
	"strings"

	assoc "github.com/goliatone/go-assoc"
	"github.com/goliatone/go-assoc/pkg/state"
	"github.com/goliatone/go-assoc/schema/openapi"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newRenderCmd(a *app) *cobra.Command {
	var typeName, dataPath string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Build a node from a data file and print its serialized graph",
		Example: `  assoc render --type Employee --data john.yaml
  assoc render -t Department -d rnd.json | jq '.locations'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			n, err := a.build(reg, typeName, dataPath)
			if err != nil {
				return err
			}
			return a.printJSON(n)
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "node type")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML or JSON attributes")
	return cmd
}

func newTraceCmd(a *app) *cobra.Command {
	var (
		typeName, dataPath string
		sets               []string
	)
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Apply path assignments and print every event the root node observes",
		Long: `Build a node, subscribe to all of its events, then apply each --set
assignment in order. Values are parsed as YAML, so numbers, maps and lists
are accepted.`,
		Example: `  assoc trace -t Employee -d john.yaml --set works_for.locations[0].zip=10001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			n, err := a.build(reg, typeName, dataPath)
			if err != nil {
				return err
			}
			n.On(assoc.AllEvents, func(ev assoc.Event) {
				fmt.Fprintln(a.out, ev.Name)
			})
			for _, assignment := range sets {
				path, value, err := parseAssignment(assignment)
				if err != nil {
					return err
				}
				if err := n.SetPath(path, value, assoc.Validate()); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "node type")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML or JSON attributes")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "path=value assignment (repeatable)")
	return cmd
}

func parseAssignment(assignment string) (string, any, error) {
	path, raw, ok := strings.Cut(assignment, "=")
	if !ok || strings.TrimSpace(path) == "" {
		return "", nil, fmt.Errorf("invalid assignment %q, want path=value", assignment)
	}
	var value any
	if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
		return "", nil, fmt.Errorf("invalid value in %q: %w", assignment, err)
	}
	return strings.TrimSpace(path), value, nil
}

func newSchemaCmd(a *app) *cobra.Command {
	var format, title string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Export the declared types",
		Long: `Export the declared types as an OpenAPI document (--format openapi) or as
flattened field descriptors per type (--format fields).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			switch format {
			case "openapi":
				doc, err := openapi.Generate(reg, openapi.WithInfo(title, version))
				if err != nil {
					return err
				}
				return a.printJSON(doc)
			case "fields":
				out := map[string]map[string]string{}
				for _, t := range reg.Types() {
					fields := map[string]string{}
					for _, field := range t.Describe() {
						fields[field.Path] = field.Type
					}
					out[t.Name()] = fields
				}
				return a.printJSON(out)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "openapi", "openapi or fields")
	cmd.Flags().StringVar(&title, "title", "assoc", "OpenAPI info title")
	return cmd
}

func newSaveCmd(a *app) *cobra.Command {
	var typeName, dataPath string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Validate a node built from a data file and persist it",
		Long: `Validate a node built from a data file and persist it in the configured
store. Nodes with an id are updated, others are created and receive one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(sync *state.Sync) error {
				reg, err := a.registry(assoc.WithDefaultSync(sync))
				if err != nil {
					return err
				}
				n, err := a.build(reg, typeName, dataPath)
				if err != nil {
					return err
				}
				if err := n.Save(cmd.Context(), nil); err != nil {
					return err
				}
				return a.printJSON(n)
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "node type")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "YAML or JSON attributes")
	return cmd
}

func newFetchCmd(a *app) *cobra.Command {
	var typeName, id string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Load a node from the configured store and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			return a.withStore(func(sync *state.Sync) error {
				reg, err := a.registry(assoc.WithDefaultSync(sync))
				if err != nil {
					return err
				}
				t, err := a.lookup(reg, typeName)
				if err != nil {
					return err
				}
				n, err := t.New(map[string]any{t.IDAttribute(): id})
				if err != nil {
					return err
				}
				if err := n.Fetch(cmd.Context()); err != nil {
					return err
				}
				return a.printJSON(n)
			})
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "", "node type")
	cmd.Flags().StringVar(&id, "id", "", "node id")
	return cmd
}
