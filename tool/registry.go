package tool

import (
	"context"
	"encoding/json"

	"github.com/studymesh/studymesh/core"
	"github.com/studymesh/studymesh/logging"
)

// Definition declares a tool before it is bound to a caller: metadata for the
// model plus a factory producing the concrete action for a Deps value. Gated
// definitions keep their factory too. The approval resolver binds and runs
// it after an affirmative decision; the model-facing Tool never carries it.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
	Gated       bool
	Bind        func(deps Deps) ExecFunc
}

// Registry holds the declared tool set and the mode allow-list map. It is
// populated once at startup and read-only afterwards, so it is shared across
// sessions without locking.
type Registry struct {
	defs      map[string]Definition
	order     []string
	modeTools map[core.Mode][]string
	logger    logging.Logger
}

// NewRegistry builds a registry from explicit definitions and a mode map.
// Every mode entry must reference a declared tool; a dangling name is a
// configuration defect surfaced at startup, not at call time.
func NewRegistry(defs []Definition, modeTools map[core.Mode][]string, logger logging.Logger) (*Registry, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	r := &Registry{
		defs:      make(map[string]Definition, len(defs)),
		modeTools: modeTools,
		logger:    logger,
	}
	for _, def := range defs {
		if _, dup := r.defs[def.Name]; dup {
			return nil, core.NewConfigurationError("tool %q declared twice", def.Name)
		}
		if def.Bind == nil {
			return nil, core.NewConfigurationError("tool %q has no binding factory", def.Name)
		}
		r.defs[def.Name] = def
		r.order = append(r.order, def.Name)
	}
	for mode, names := range modeTools {
		for _, name := range names {
			if _, ok := r.defs[name]; !ok {
				return nil, core.NewConfigurationError("mode %s allows undeclared tool %q", mode, name)
			}
		}
	}
	logger.Debug("tool.registry.initialized", "tools", len(r.defs), "modes", len(modeTools))
	return r, nil
}

// NewDefaultRegistry builds the registry with the built-in academic tool set.
func NewDefaultRegistry(logger logging.Logger) (*Registry, error) {
	return NewRegistry(AcademicDefinitions(), AcademicModeTools(), logger)
}

// Names returns all declared tool names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// RequiresConfirmation reports whether the named tool is gated. Unknown
// names report false.
func (r *Registry) RequiresConfirmation(name string) bool {
	def, ok := r.defs[name]
	return ok && def.Gated
}

// CreateTools binds every declared tool to the supplied capabilities. Auto
// definitions yield *AutoTool with a live action; gated definitions yield
// *GatedTool with none.
func (r *Registry) CreateTools(deps Deps) map[string]Tool {
	tools := make(map[string]Tool, len(r.defs))
	for name, def := range r.defs {
		if def.Gated {
			tools[name] = &GatedTool{def: def}
		} else {
			tools[name] = &AutoTool{def: def, fn: def.Bind(deps)}
		}
	}
	return tools
}

// ToolsForMode filters the bound tool set down to the mode's allow-list.
// Modes without an entry get no tools.
func (r *Registry) ToolsForMode(mode core.Mode, deps Deps) map[string]Tool {
	allowed := r.modeTools[mode]
	if len(allowed) == 0 {
		return map[string]Tool{}
	}
	all := r.CreateTools(deps)
	tools := make(map[string]Tool, len(allowed))
	for _, name := range allowed {
		tools[name] = all[name]
	}
	return tools
}

// Invoker executes a named tool against its serialized argument payload,
// running schema validation first. It is how the approval resolver and the
// session controller call bound actions without holding Tool values.
type Invoker func(ctx context.Context, rawArgs json.RawMessage) (any, error)

// Executors binds every declared tool's action, gated ones included, each
// wrapped with argument decoding and schema validation. The approval
// resolver uses this map to execute gated calls after an affirmative
// decision; the controller uses it for auto calls.
func (r *Registry) Executors(deps Deps) map[string]Invoker {
	execs := make(map[string]Invoker, len(r.defs))
	for name, def := range r.defs {
		def := def
		bound := def.Bind(deps)
		execs[name] = func(ctx context.Context, rawArgs json.RawMessage) (any, error) {
			return invoke(ctx, def, bound, rawArgs)
		}
	}
	return execs
}
