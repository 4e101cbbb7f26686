package imports

import (
	"reflect"
	"regexp"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/hostwire/wasm-bridge/errors"
)

type signature struct {
	params  []wit.Type
	results []wit.Type
}

// RegisterSignatures parses WIT function declarations and records them
// as the expected shapes of namespace's trampolines. Bind refuses a
// trampoline whose Go signature disagrees with its declaration; an
// arity violation at a call site is undefined behavior module-side, so
// it must be impossible to bind one.
//
// Expected declaration form, one per function:
//
//	name: func(params) -> result;
func (r *Registry) RegisterSignatures(namespace, witText string) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseBind, "namespace cannot be empty")
	}

	sigs, err := parseWitFunctions(witText)
	if err != nil {
		return err
	}
	if r.sigs[namespace] == nil {
		r.sigs[namespace] = make(map[string]signature)
	}
	for name, sig := range sigs {
		r.sigs[namespace][name] = sig
	}
	return nil
}

func (r *Registry) checkSignature(namespace, name string, fn any) error {
	sig, ok := r.sigs[namespace][name]
	if !ok {
		return nil
	}

	fnType := reflect.TypeOf(fn)
	gotParams := countNumericParams(fnType)
	if gotParams != len(sig.params) {
		return errors.ArityMismatch(namespace, name, gotParams, len(sig.params))
	}

	gotResults := fnType.NumOut()
	if gotResults > 0 && fnType.Out(gotResults-1) == errorType {
		gotResults--
	}
	if gotResults != len(sig.results) {
		return errors.New(errors.PhaseBind, errors.KindArityMismatch).
			Path(namespace, name).
			Detail("trampoline returns %d values, import declares %d", gotResults, len(sig.results)).
			Build()
	}
	return nil
}

// parseWitFunctions extracts function signatures from WIT text.
// Pattern: name: func(params) -> result;
func parseWitFunctions(witText string) (map[string]signature, error) {
	funcs := make(map[string]signature)

	funcPattern := regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_-]*)\s*:\s*func\s*\(([^)]*)\)(?:\s*->\s*([^;]+))?`)

	matches := funcPattern.FindAllStringSubmatch(witText, -1)
	for _, match := range matches {
		name := match[1]
		paramsStr := strings.TrimSpace(match[2])
		resultStr := ""
		if len(match) > 3 {
			resultStr = strings.TrimSpace(match[3])
		}

		var sig signature

		if paramsStr != "" {
			for _, p := range splitParams(paramsStr) {
				typStr := p
				if idx := strings.LastIndex(p, ":"); idx != -1 {
					typStr = strings.TrimSpace(p[idx+1:])
				}
				t, err := wit.ParseType(typStr)
				if err != nil {
					return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidInput, err, "parse param type "+typStr)
				}
				sig.params = append(sig.params, t)
			}
		}

		if resultStr != "" && resultStr != "()" {
			if strings.HasPrefix(resultStr, "(") && strings.HasSuffix(resultStr, ")") {
				inner := strings.TrimPrefix(strings.TrimSuffix(resultStr, ")"), "(")
				if inner != "" {
					for _, part := range splitParams(inner) {
						t, err := wit.ParseType(strings.TrimSpace(part))
						if err != nil {
							return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidInput, err, "parse result type "+part)
						}
						sig.results = append(sig.results, t)
					}
				}
			} else {
				t, err := wit.ParseType(strings.TrimSpace(resultStr))
				if err != nil {
					return nil, errors.Wrap(errors.PhaseBind, errors.KindInvalidInput, err, "parse result type "+resultStr)
				}
				sig.results = []wit.Type{t}
			}
		}

		funcs[name] = sig
	}

	if len(funcs) == 0 {
		return nil, errors.InvalidInput(errors.PhaseBind, "no functions found in WIT text")
	}

	return funcs, nil
}

// splitParams splits parameter list, handling nested parens.
func splitParams(s string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for _, ch := range s {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				if str := strings.TrimSpace(current.String()); str != "" {
					result = append(result, str)
				}
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}

	if str := strings.TrimSpace(current.String()); str != "" {
		result = append(result, str)
	}

	return result
}
