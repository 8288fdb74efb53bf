// Package loader reads and validates machine profile inventories.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ancients-collective/hostready/internal/shell"
	"github.com/ancients-collective/hostready/internal/types"
)

// ErrUnknownMachineType is returned when no profile exists for a machine type.
var ErrUnknownMachineType = types.ErrUnknownMachineType

// ConfigError reports every problem found in an inventory file.
type ConfigError struct {
	// Path is the file the problems were found in.
	Path string

	// Err holds the accumulated problems.
	Err error
}

func (e *ConfigError) Error() string {
	problems := e.Problems()
	if len(problems) == 1 {
		return fmt.Sprintf("invalid config %s: %s", e.Path, problems[0])
	}
	return fmt.Sprintf("invalid config %s: %d problems: %s", e.Path, len(problems), strings.Join(problems, "; "))
}

func (e *ConfigError) Unwrap() []error {
	return multierr.Errors(e.Err)
}

// Problems returns one message per problem, in discovery order.
func (e *ConfigError) Problems() []string {
	errs := multierr.Errors(e.Err)
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		out = append(out, err.Error())
	}
	return out
}

// Loader reads inventories and validates them against the schema and the
// set of known check ids.
type Loader struct {
	validate    *validator.Validate
	knownChecks map[string]struct{}
}

// New creates a Loader. knownChecks are the check ids a profile may list
// in its checks override.
func New(knownChecks []string) *Loader {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	checks := make(map[string]struct{}, len(knownChecks))
	for _, c := range knownChecks {
		checks[c] = struct{}{}
	}

	_ = v.RegisterValidation("machine_type", func(fl validator.FieldLevel) bool {
		return types.MachineType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("host_name", func(fl validator.FieldLevel) bool {
		return shell.ValidateHostname(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("service_name", func(fl validator.FieldLevel) bool {
		return shell.ValidateServiceName(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("check_id", func(fl validator.FieldLevel) bool {
		_, ok := checks[fl.Field().String()]
		return ok
	})

	return &Loader{validate: v, knownChecks: checks}
}

// Load reads a YAML or JSON inventory file and validates it.
// Every problem is reported in a single *ConfigError.
func (l *Loader) Load(path string) (*types.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("failed to read: %w", err)}
	}
	return l.Parse(path, data)
}

// Parse decodes and validates inventory data. name is used in error messages.
func (l *Loader) Parse(name string, data []byte) (*types.Inventory, error) {
	var inv types.Inventory

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&inv); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Path: name, Err: fmt.Errorf("failed to parse: %w", err)}
	}

	if err := l.validateInventory(&inv); err != nil {
		return nil, &ConfigError{Path: name, Err: err}
	}
	return &inv, nil
}

// validateInventory runs schema validation (struct tags) and the
// cross-profile rules, accumulating every problem.
func (l *Loader) validateInventory(inv *types.Inventory) error {
	var errs error

	if err := l.validate.Struct(inv); err != nil {
		errs = multierr.Append(errs, l.formatValidationErrors(err))
	}

	seen := make(map[types.MachineType]int, len(inv.Machines))
	for i, m := range inv.Machines {
		if m.Type == "" {
			continue
		}
		if first, dup := seen[m.Type]; dup {
			errs = multierr.Append(errs, fmt.Errorf("machines[%d]: duplicate type %q (first defined at machines[%d])", i, m.Type, first))
			continue
		}
		seen[m.Type] = i
	}

	return errs
}

// formatValidationErrors converts validator errors into user-friendly errors.
func (l *Loader) formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	var errs error
	for _, fe := range validationErrors {
		errs = multierr.Append(errs, errors.New(l.formatFieldError(fe)))
	}
	return errs
}

// formatFieldError converts a single field validation error to a human-readable message.
func (l *Loader) formatFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "startswith":
		return fmt.Sprintf("%s must be an absolute path, got %q", field, fe.Value())
	case "machine_type":
		return fmt.Sprintf("%s: unknown machine type %q (known types: %s)", field, fe.Value(), machineTypeList())
	case "host_name":
		return fmt.Sprintf("%s: %q is not a valid host name", field, fe.Value())
	case "service_name":
		return fmt.Sprintf("%s: %q is not a valid service name", field, fe.Value())
	case "check_id":
		return fmt.Sprintf("%s: unknown check %q (known checks: %s)", field, fe.Value(), l.knownCheckList())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func (l *Loader) knownCheckList() string {
	names := make([]string, 0, len(l.knownChecks))
	for name := range l.knownChecks {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func machineTypeList() string {
	names := make([]string, 0, len(types.MachineTypes))
	for _, mt := range types.MachineTypes {
		names = append(names, string(mt))
	}
	return strings.Join(names, ", ")
}

// Resolve returns the single profile for machine type mt.
func Resolve(inv *types.Inventory, mt types.MachineType) (types.MachineProfile, error) {
	if inv == nil {
		return types.MachineProfile{}, fmt.Errorf("%w: %q (no inventory loaded)", ErrUnknownMachineType, mt)
	}

	var found []types.MachineProfile
	for _, m := range inv.Machines {
		if m.Type == mt {
			found = append(found, m)
		}
	}

	switch len(found) {
	case 0:
		return types.MachineProfile{}, fmt.Errorf("%w: %q (configured: %s)", ErrUnknownMachineType, mt, configuredTypes(inv))
	case 1:
	default:
		return types.MachineProfile{}, fmt.Errorf("machine type %q defined %d times", mt, len(found))
	}

	profile := found[0]
	if profile.Type != mt || !profile.Type.Valid() {
		return types.MachineProfile{}, fmt.Errorf("%w: resolved profile has type %q, want %q", ErrUnknownMachineType, profile.Type, mt)
	}
	return profile, nil
}

func configuredTypes(inv *types.Inventory) string {
	if len(inv.Machines) == 0 {
		return "none"
	}
	names := make([]string, 0, len(inv.Machines))
	for _, m := range inv.Machines {
		names = append(names, string(m.Type))
	}
	return strings.Join(names, ", ")
}
