package capability

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Result is the value handed back to the model for one invocation.
// Failures are encoded as data ({"error": ...}), never raised, so the
// conversation loop's pairing invariant holds unconditionally.
type Result map[string]any

// ErrorResult packages a failure message in the error-payload form.
func ErrorResult(msg string) Result {
	return Result{"error": msg}
}

// Invocation carries ambient data a capability may need but that is not
// part of the model-issued arguments, e.g. the raw image attached to the
// user's turn for an upload capability.
type Invocation struct {
	MediaData string // base64-encoded bytes from the original user turn
	MediaMIME string
}

// Invoker executes one capability. Implementations must be safe for
// concurrent use and respect context cancellation. A returned error is
// converted to an error-payload Result by the registry; it never
// terminates the exchange.
type Invoker interface {
	Invoke(ctx context.Context, args map[string]any, inv Invocation) (Result, error)
}

// Registry maps capability names to their declarations and invokers. The
// declaration set is fixed at construction from the embedded YAML file
// and always offered to the model in full.
type Registry struct {
	decls []Declaration

	mu       sync.RWMutex
	invokers map[string]Invoker

	logger *slog.Logger
}

// NewRegistry creates a registry and loads the embedded declaration file.
func NewRegistry(logger *slog.Logger) (*Registry, error) {
	data, err := configFiles.ReadFile("config/declarations.yaml")
	if err != nil {
		return nil, fmt.Errorf("read capability declarations: %w", err)
	}

	var file declarationFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal capability declarations: %w", err)
	}
	if len(file.Capabilities) == 0 {
		return nil, fmt.Errorf("capability declaration file is empty")
	}

	return &Registry{
		decls:    file.Capabilities,
		invokers: make(map[string]Invoker),
		logger:   logger,
	}, nil
}

// Register binds an invoker to a declared capability name. Binding a name
// without a declaration is a wiring mistake and fails loudly.
func (r *Registry) Register(name string, inv Invoker) error {
	declared := false
	for _, d := range r.decls {
		if d.Name == name {
			declared = true
			break
		}
	}
	if !declared {
		return fmt.Errorf("capability %q has no declaration", name)
	}

	r.mu.Lock()
	r.invokers[name] = inv
	r.mu.Unlock()
	return nil
}

// Declarations returns the full declaration set in file order.
func (r *Registry) Declarations() []Declaration {
	return r.decls
}

// Invoke runs the named capability. It never returns a propagating
// failure: unknown names, unbound invokers and invoker errors are all
// converted to error-payload results so the model can narrate them.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, inv Invocation) Result {
	r.mu.RLock()
	invoker := r.invokers[name]
	r.mu.RUnlock()

	if invoker == nil {
		r.logger.Warn("unknown capability requested", "name", name)
		return ErrorResult(fmt.Sprintf("capability %s not recognized", name))
	}

	result, err := invoker.Invoke(ctx, args, inv)
	if err != nil {
		r.logger.Warn("capability invocation failed", "name", name, "error", err)
		return ErrorResult(err.Error())
	}
	return result
}
