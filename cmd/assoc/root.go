package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	assoc "github.com/goliatone/go-assoc"
	"github.com/goliatone/go-assoc/internal/schemafile"
	"github.com/goliatone/go-assoc/pkg/activity"
	"github.com/goliatone/go-assoc/pkg/cache"
	"github.com/goliatone/go-assoc/pkg/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     Config
	out     io.Writer
	errOut  io.Writer
	logger  logr.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: viper.New(), out: out, errOut: errOut, logger: logr.Discard()}

	root := &cobra.Command{
		Use:           "assoc",
		Short:         "Inspect relational node graphs",
		Long:          `Build node graphs from YAML type declarations and data files, then render, trace, export or persist them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a.v, a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			stdr.SetVerbosity(cfg.Verbosity)
			a.logger = stdr.New(log.New(a.errOut, "assoc ", log.LstdFlags))
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./assoc.yaml)")
	flags.StringP("schema", "s", "", "schema file declaring node types")
	flags.String("evaluator", "", "rule engine: expr, cel or js")
	flags.IntP("verbosity", "v", 0, "log verbosity")
	flags.String("store", "", "store driver: memory, sqlite or redis")
	flags.String("store-path", "", "sqlite database path")
	flags.String("redis-addr", "", "redis address")
	_ = a.v.BindPFlag("schema", flags.Lookup("schema"))
	_ = a.v.BindPFlag("evaluator", flags.Lookup("evaluator"))
	_ = a.v.BindPFlag("verbosity", flags.Lookup("verbosity"))
	_ = a.v.BindPFlag("store.driver", flags.Lookup("store"))
	_ = a.v.BindPFlag("store.path", flags.Lookup("store-path"))
	_ = a.v.BindPFlag("store.addr", flags.Lookup("redis-addr"))

	root.AddCommand(
		newRenderCmd(a),
		newTraceCmd(a),
		newSchemaCmd(a),
		newSaveCmd(a),
		newFetchCmd(a),
	)
	return root
}

// registry loads the schema file into a registry configured from the CLI
// configuration.
func (a *app) registry(extra ...assoc.Option) (*assoc.Registry, error) {
	file, err := schemafile.Load(a.cfg.Schema)
	if err != nil {
		return nil, err
	}
	programs := cache.NewProgramCache(0, 0)
	functions := assoc.StandardFunctions()
	opts := []assoc.Option{
		assoc.WithLogger(a.logger),
		assoc.WithProgramCache(programs),
		assoc.WithFunctionRegistry(functions),
	}
	engine := []assoc.EngineOption{
		assoc.EngineProgramCache(programs),
		assoc.EngineFunctions(functions),
	}
	switch a.cfg.Evaluator {
	case "cel":
		opts = append(opts, assoc.WithEvaluator(assoc.NewCELEvaluator(engine...)))
	case "js":
		opts = append(opts, assoc.WithEvaluator(assoc.NewJSEvaluator(engine...)))
	}
	if a.cfg.Activity.Enabled {
		opts = append(opts, assoc.WithActivityEmitter(activity.NewEmitter(
			activity.Hooks{activity.HookFunc(a.printActivity)},
			a.cfg.Activity,
		)))
	}
	reg := assoc.NewRegistry(append(opts, extra...)...)
	if err := file.Define(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func (a *app) printActivity(_ context.Context, event activity.Event) error {
	_, err := fmt.Fprintf(a.errOut, "activity %s %s/%s\n", event.Verb, event.ObjectType, event.ObjectID)
	return err
}

func (a *app) lookup(reg *assoc.Registry, name string) (*assoc.Type, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("--type is required")
	}
	t, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown type %q (known: %s)", name, strings.Join(reg.Names(), ", "))
	}
	return t, nil
}

// build constructs a node of typeName from the data file, or from the
// type defaults when dataPath is empty.
func (a *app) build(reg *assoc.Registry, typeName, dataPath string) (*assoc.Node, error) {
	t, err := a.lookup(reg, typeName)
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{}
	if dataPath != "" {
		if attrs, err = schemafile.LoadData(dataPath); err != nil {
			return nil, err
		}
	}
	return t.New(attrs, assoc.Validate())
}

func (a *app) printJSON(value any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func (a *app) withStore(fn func(*state.Sync) error) error {
	store, closeStore, err := openStore(a.cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(state.NewSync(store))
}
