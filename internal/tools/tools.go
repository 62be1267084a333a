// Package tools holds the registry of deterministic occupancy tools.
//
// A tool is a named handler with a declared argument schema. The registry
// validates arguments against the schema before the handler runs, so
// handlers only ever see complete, typed arguments. All tools are read-only
// and answer from the occupancy store.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/atlasd/internal/answer"
	"github.com/fyrsmithlabs/atlasd/internal/store"
)

var tracer = otel.Tracer("atlasd.tools")

// ErrorKind classifies tool invocation failures.
type ErrorKind string

const (
	// KindNotFound means no tool is registered under the requested name.
	KindNotFound ErrorKind = "not_found"
	// KindBadArguments means the arguments failed schema validation. The
	// handler never ran.
	KindBadArguments ErrorKind = "bad_arguments"
	// KindExecution means the handler ran and failed.
	KindExecution ErrorKind = "execution"
)

// ToolError is a structured tool failure.
type ToolError struct {
	Kind   ErrorKind
	Tool   string
	Detail string
	cause  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Kind, e.Detail)
}

func (e *ToolError) Unwrap() error { return e.cause }

// ArgType enumerates the argument types tools can declare.
type ArgType string

const (
	ArgInt    ArgType = "int"
	ArgFloat  ArgType = "float"
	ArgString ArgType = "string"
)

// ArgSpec declares one tool argument.
type ArgSpec struct {
	Name     string
	Type     ArgType
	Required bool
	// Default fills in a missing optional argument.
	Default any
}

// Schema declares a tool's name, purpose and arguments.
type Schema struct {
	Name        string
	Description string
	Args        []ArgSpec
}

// Handler executes a tool against validated arguments.
type Handler func(ctx context.Context, args Args) (*answer.ResultSet, string, error)

// Args is the validated argument set a handler receives. Lookups never miss
// for declared arguments: required ones were checked, optional ones carry
// their defaults.
type Args map[string]any

// Int returns the named argument as an int.
func (a Args) Int(name string) int {
	v, _ := coerceInt(a[name])
	return v
}

// OptionalInt returns a pointer for arguments that distinguish "absent" from
// any value, like a floor filter.
func (a Args) OptionalInt(name string) *int {
	raw, ok := a[name]
	if !ok || raw == nil {
		return nil
	}
	v, ok := coerceInt(raw)
	if !ok {
		return nil
	}
	return &v
}

// Float returns the named argument as a float64.
func (a Args) Float(name string) float64 {
	v, _ := coerceFloat(a[name])
	return v
}

type tool struct {
	schema  Schema
	handler Handler
}

// Registry maps tool names to schemas and handlers. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	tools  map[string]tool
	logger *zap.Logger
}

// NewRegistry builds the full tool set over the occupancy store.
func NewRegistry(db *store.Store, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{tools: make(map[string]tool), logger: logger}
	r.registerOccupancyTools(db)
	r.registerPlanner(db)
	return r
}

func (r *Registry) register(s Schema, h Handler) {
	r.tools[s.Name] = tool{schema: s, handler: h}
}

// Schemas returns all registered schemas, sorted by name. Used by the agent
// prompt and the HTTP introspection endpoint.
func (r *Registry) Schemas() []Schema {
	out := make([]Schema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Has reports whether a tool name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Invoke validates args against the tool's schema and runs the handler.
// The returned Invocation records the tool name, the validated arguments and
// the result rows; it is only non-nil on success.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (*answer.Invocation, error) {
	ctx, span := tracer.Start(ctx, "Registry.Invoke")
	defer span.End()
	span.SetAttributes(attribute.String("tool", name))

	t, ok := r.tools[name]
	if !ok {
		err := &ToolError{Kind: KindNotFound, Tool: name, Detail: "no such tool"}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	validated, verr := validateArgs(t.schema, args)
	if verr != nil {
		span.SetStatus(codes.Error, verr.Error())
		return nil, verr
	}

	start := time.Now()
	rs, summary, err := t.handler(ctx, validated)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &ToolError{Kind: KindExecution, Tool: name, Detail: err.Error(), cause: err}
	}

	r.logger.Debug("tool invoked",
		zap.String("tool", name),
		zap.Int("rows", rs.RowCount),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &answer.Invocation{
		Tool:    name,
		Args:    validated,
		Result:  rs,
		Summary: summary,
	}, nil
}

func validateArgs(s Schema, args map[string]any) (Args, *ToolError) {
	declared := make(map[string]ArgSpec, len(s.Args))
	for _, spec := range s.Args {
		declared[spec.Name] = spec
	}
	for name := range args {
		if _, ok := declared[name]; !ok {
			return nil, &ToolError{
				Kind: KindBadArguments, Tool: s.Name,
				Detail: fmt.Sprintf("unknown argument %q", name),
			}
		}
	}

	out := make(Args, len(s.Args))
	for _, spec := range s.Args {
		raw, present := args[spec.Name]
		if !present || raw == nil {
			if spec.Required {
				return nil, &ToolError{
					Kind: KindBadArguments, Tool: s.Name,
					Detail: fmt.Sprintf("missing required argument %q", spec.Name),
				}
			}
			if spec.Default != nil {
				out[spec.Name] = spec.Default
			}
			continue
		}
		coerced, ok := coerce(spec.Type, raw)
		if !ok {
			return nil, &ToolError{
				Kind: KindBadArguments, Tool: s.Name,
				Detail: fmt.Sprintf("argument %q must be %s, got %T", spec.Name, spec.Type, raw),
			}
		}
		out[spec.Name] = coerced
	}
	return out, nil
}

// coerce accepts the representations that actually arrive: native Go ints
// from the router, float64 and strings from decoded JSON.
func coerce(t ArgType, raw any) (any, bool) {
	switch t {
	case ArgInt:
		return asAnyInt(raw)
	case ArgFloat:
		v, ok := coerceFloat(raw)
		return v, ok
	case ArgString:
		s, ok := raw.(string)
		return s, ok
	default:
		return nil, false
	}
}

func asAnyInt(raw any) (any, bool) {
	v, ok := coerceInt(raw)
	if !ok {
		return nil, false
	}
	return v, true
}

func coerceInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}

func coerceFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// IsToolError extracts a *ToolError when err carries one.
func IsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
