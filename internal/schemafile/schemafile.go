// Package schemafile loads node type declarations and seed data from YAML.
//
//	types:
//	  - name: Employee
//	    defaults: {fname: "", age: 0}
//	    relations:
//	      - {key: works_for, one: Department}
//	      - {key: projects, many: Project}
//	    rules:
//	      - {expr: "age >= 0", message: "age must not be negative"}
package schemafile

import (
	"errors"
	"fmt"
	"io"
	"os"

	assoc "github.com/goliatone/go-assoc"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// File is a decoded schema document.
type File struct {
	Types []TypeDecl `yaml:"types"`
}

// TypeDecl declares one node type.
type TypeDecl struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	ID          string         `yaml:"id"`
	Defaults    map[string]any `yaml:"defaults"`
	Relations   []RelationDecl `yaml:"relations"`
	Rules       []RuleDecl     `yaml:"rules"`
}

// RelationDecl declares a relation. Exactly one of One and Many names the
// related type.
type RelationDecl struct {
	Key  string `yaml:"key"`
	One  string `yaml:"one"`
	Many string `yaml:"many"`
}

type RuleDecl struct {
	Expr    string `yaml:"expr"`
	Message string `yaml:"message"`
}

var ErrRelationTarget = errors.New("schemafile: relation must set exactly one of one or many")

// Decode reads a schema document.
func Decode(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("schemafile: decode: %w", err)
	}
	return &f, nil
}

// Load reads the schema document at path.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	defer fh.Close()
	return Decode(fh)
}

// Define registers every declared type on reg. Relations refer to types by
// name, so declaration order does not matter. All declaration errors are
// reported together.
func (f *File) Define(reg *assoc.Registry, extra ...assoc.TypeOption) error {
	if f == nil {
		return nil
	}
	var errs error
	for _, decl := range f.Types {
		opts, err := decl.options()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, err := reg.Define(decl.Name, append(opts, extra...)...); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (d TypeDecl) options() ([]assoc.TypeOption, error) {
	opts := []assoc.TypeOption{
		assoc.WithDefaults(normalize(d.Defaults).(map[string]any)),
		assoc.WithDescription(d.Description),
		assoc.WithIDAttribute(d.ID),
	}
	relations := make([]assoc.Relation, 0, len(d.Relations))
	for _, rel := range d.Relations {
		switch {
		case rel.One != "" && rel.Many == "":
			relations = append(relations, assoc.HasOne(rel.Key, assoc.Named(rel.One)))
		case rel.Many != "" && rel.One == "":
			relations = append(relations, assoc.HasMany(rel.Key, assoc.Named(rel.Many)))
		default:
			return nil, fmt.Errorf("%w: %s.%s", ErrRelationTarget, d.Name, rel.Key)
		}
	}
	opts = append(opts, assoc.WithRelations(relations...))
	for _, rule := range d.Rules {
		opts = append(opts, assoc.WithRule(rule.Expr, rule.Message))
	}
	return opts, nil
}

// DecodeData reads a YAML or JSON document holding node attributes.
func DecodeData(r io.Reader) (map[string]any, error) {
	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("schemafile: decode data: %w", err)
	}
	attrs, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schemafile: data must be a mapping, got %T", raw)
	}
	return attrs, nil
}

// LoadData reads the data document at path.
func LoadData(path string) (map[string]any, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("schemafile: %w", err)
	}
	defer fh.Close()
	return DecodeData(fh)
}

// normalize converts YAML decoded values into the plain shapes nodes expect.
func normalize(value any) any {
	switch v := value.(type) {
	case nil:
		return map[string]any(nil)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeItem(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeItem(item)
		}
		return out
	default:
		return value
	}
}

func normalizeItem(value any) any {
	switch v := value.(type) {
	case map[string]any, map[any]any:
		return normalize(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeItem(item)
		}
		return out
	default:
		return value
	}
}
