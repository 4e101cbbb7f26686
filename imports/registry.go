package imports

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/hostwire/wasm-bridge/errors"
)

// Module is the interface for struct-based capability modules.
// All exported methods (except Namespace) are registered as trampolines.
type Module interface {
	// Namespace returns the import namespace (e.g., "hostwire:console").
	Namespace() string
}

// Registry is the named table of trampolines a loaded module imports.
// Each entry forwards a boundary call to a real host operation,
// translating handles and primitives on the way through.
type Registry struct {
	sink  ErrorSink
	funcs map[string]map[string]any
	sigs  map[string]map[string]signature
}

// NewRegistry creates an empty trampoline table. sink may be nil, in
// which case captured host errors are only logged.
func NewRegistry(sink ErrorSink) *Registry {
	return &Registry{
		sink:  sink,
		funcs: make(map[string]map[string]any),
		sigs:  make(map[string]map[string]signature),
	}
}

// RegisterFunc adds a single trampoline under namespace/name.
func (r *Registry) RegisterFunc(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseBind, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseBind, "function name cannot be empty")
	}

	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Path(namespace, name).
			Detail("trampoline must be a function, got %T", fn).
			Build()
	}
	if t.IsVariadic() {
		return errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Path(namespace, name).
			Detail("variadic trampolines are not supported").
			Build()
	}

	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]any)
	}
	r.funcs[namespace][name] = fn
	return nil
}

// RegisterModule registers all exported methods of m as trampolines.
// Method names are converted from PascalCase to kebab-case
// (FillRandom -> fill-random).
func (r *Registry) RegisterModule(m Module) error {
	ns := m.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseBind, "namespace cannot be empty")
	}

	rv := reflect.ValueOf(m)
	rt := rv.Type()

	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		if err := r.RegisterFunc(ns, toKebabCase(method.Name), rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Namespaces lists the registered namespaces.
func (r *Registry) Namespaces() []string {
	out := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		out = append(out, ns)
	}
	return out
}

// Len returns the total number of registered trampolines.
func (r *Registry) Len() int {
	n := 0
	for _, funcs := range r.funcs {
		n += len(funcs)
	}
	return n
}

// Bind instantiates one host module per namespace in the wazero
// runtime, wrapping every trampoline in the error-capture guard. When
// signatures were registered for a namespace, each trampoline's shape
// is validated against its declared import first.
func (r *Registry) Bind(ctx context.Context, runtime wazero.Runtime) error {
	for namespace, funcs := range r.funcs {
		builder := runtime.NewHostModuleBuilder(namespace)
		for name, fn := range funcs {
			if err := r.checkSignature(namespace, name, fn); err != nil {
				return err
			}
			builder.NewFunctionBuilder().
				WithFunc(r.guard(namespace, name, fn)).
				Export(name)
		}
		if _, err := builder.Instantiate(ctx); err != nil {
			return errors.Registration(namespace, "", err)
		}
		Logger().Debug("host module bound",
			zap.String("namespace", namespace),
			zap.Int("trampolines", len(funcs)))
	}
	return nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// guard wraps a trampoline so a host operation failing does not tear
// across the boundary: a returned error is captured into the sink and
// zero values are returned, leaving the module to check the last-error
// slot. Panics propagate; inside a trampoline they mean boundary
// protocol corruption and must fail fast, not be recovered.
func (r *Registry) guard(namespace, name string, fn any) any {
	fnVal := reflect.ValueOf(fn)
	fnType := fnVal.Type()

	numOut := fnType.NumOut()
	hasErr := numOut > 0 && fnType.Out(numOut-1) == errorType
	if !hasErr {
		return fn
	}

	ins := make([]reflect.Type, fnType.NumIn())
	for i := range ins {
		ins[i] = fnType.In(i)
	}
	outs := make([]reflect.Type, 0, numOut-1)
	for i := 0; i < numOut-1; i++ {
		outs = append(outs, fnType.Out(i))
	}

	wrapped := reflect.MakeFunc(reflect.FuncOf(ins, outs, false), func(args []reflect.Value) []reflect.Value {
		rets := fnVal.Call(args)
		if errV := rets[numOut-1]; !errV.IsNil() {
			err := errV.Interface().(error)
			if isFatal(err) {
				panic(err)
			}
			r.capture(namespace, name, err)
			results := make([]reflect.Value, len(outs))
			for i, t := range outs {
				results[i] = reflect.Zero(t)
			}
			return results
		}
		return rets[:numOut-1]
	})
	return wrapped.Interface()
}

func (r *Registry) capture(namespace, name string, err error) {
	wrapped := errors.HostCall(namespace, name, err)
	Logger().Debug("host call failed",
		zap.String("namespace", namespace),
		zap.String("name", name),
		zap.Error(err))
	if r.sink != nil {
		r.sink.CaptureHostError(namespace, name, wrapped)
	}
}

// isFatal reports whether an error indicates boundary protocol
// corruption rather than an ordinary host failure. These terminate the
// call instead of landing in the last-error slot.
func isFatal(err error) bool {
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case errors.KindInvalidHandle, errors.KindDoubleRelease, errors.KindBorrowOrder,
		errors.KindInvalidUTF8, errors.KindOutOfBounds:
		return true
	}
	return false
}

// toKebabCase converts PascalCase to kebab-case.
// Handles acronyms: GetHTTPCode -> get-http-code
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('-')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1 // -1 because loop will increment
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// countNumericParams counts boundary-visible parameters, skipping the
// optional leading context.Context and api.Module.
func countNumericParams(fnType reflect.Type) int {
	n := 0
	for i := 0; i < fnType.NumIn(); i++ {
		t := fnType.In(i)
		if t == contextType || t == apiModuleType {
			continue
		}
		n++
	}
	return n
}

var (
	contextType   = reflect.TypeOf((*context.Context)(nil)).Elem()
	apiModuleType = reflect.TypeOf((*api.Module)(nil)).Elem()
)

// String renders the registry for debugging.
func (r *Registry) String() string {
	var b strings.Builder
	for ns, funcs := range r.funcs {
		for name := range funcs {
			fmt.Fprintf(&b, "%s#%s\n", ns, name)
		}
	}
	return b.String()
}
