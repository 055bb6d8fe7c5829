package assoc_test

import (
	"errors"
	"reflect"
	"testing"

	assoc "github.com/goliatone/go-assoc"
)

type company struct {
	reg        *assoc.Registry
	location   *assoc.Type
	project    *assoc.Type
	department *assoc.Type
	employee   *assoc.Type
}

func newCompany(t *testing.T, opts ...assoc.Option) company {
	t.Helper()
	reg := assoc.NewRegistry(opts...)
	location := reg.MustDefine("Location", assoc.WithDefaults(map[string]any{"zip": ""}))
	project := reg.MustDefine("Project",
		assoc.WithDefaults(map[string]any{"name": ""}),
		assoc.WithRelations(assoc.HasMany("locations", assoc.Ref(location))),
	)
	department := reg.MustDefine("Department",
		assoc.WithDefaults(map[string]any{"name": ""}),
		assoc.WithRelations(
			assoc.HasMany("locations", assoc.Ref(location)),
			assoc.HasMany("controls", assoc.Ref(project)),
		),
		assoc.WithValidator(func(attrs map[string]any) error {
			if name, _ := attrs["name"].(string); name == "invalid" {
				return errors.New("department name is reserved")
			}
			return nil
		}),
	)
	employee := reg.MustDefine("Employee",
		assoc.WithDefaults(map[string]any{"fname": "", "lname": "", "age": 0}),
		assoc.WithRelations(
			assoc.HasOne("works_for", assoc.Named("Department")),
			assoc.HasMany("dependents", assoc.Named("Dependent")),
			assoc.HasOne("manager", assoc.Named("Employee")),
		),
		assoc.WithValidator(func(attrs map[string]any) error {
			if age, ok := attrs["age"].(int); ok && age < 0 {
				return errors.New("age must not be negative")
			}
			return nil
		}),
	)
	reg.MustDefine("Dependent", assoc.WithDefaults(map[string]any{"name": ""}))
	return company{reg: reg, location: location, project: project, department: department, employee: employee}
}

// recorder collects the names of every event fired on an emitter.
type recorder struct {
	names []string
}

func record(e assoc.Emitter) *recorder {
	r := &recorder{}
	e.On(assoc.AllEvents, func(ev assoc.Event) {
		r.names = append(r.names, ev.Name)
	})
	return r
}

func (r *recorder) count(name string) int {
	n := 0
	for _, got := range r.names {
		if got == name {
			n++
		}
	}
	return n
}

func (r *recorder) has(name string) bool {
	return r.count(name) > 0
}

func equalNames(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected events %v, got %v", want, got)
		}
	}
}

func equalJSON(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
