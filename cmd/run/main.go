package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/hostwire/wasm-bridge/bridge"
	"github.com/hostwire/wasm-bridge/engine"
	"github.com/hostwire/wasm-bridge/imports"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to wasm file")
		wasmURL     = flag.String("url", "", "URL to fetch the wasm from")
		funcName    = flag.String("func", "", "Function to call (optional)")
		argList     = flag.String("args", "", "Comma-separated arguments")
		strArg      = flag.String("str", "", "String argument (encoded into module memory)")
		startExport = flag.String("start", bridge.ExportStart, "Start export name, empty to skip")
		list        = flag.Bool("list", false, "List exported functions and exit")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" && *wasmURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-func name] [-args 1,2]")
		fmt.Fprintln(os.Stderr, "       run -url <http://...> [-func name]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			bridge.SetLogger(logger)
			engine.SetLogger(logger)
			imports.SetLogger(logger)
		}
	}

	src := moduleSource(*wasmFile, *wasmURL)

	if *interactive {
		if err := runInteractive(src, *startExport); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(src, *funcName, *argList, *strArg, *startExport, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func moduleSource(file, url string) bridge.Source {
	if url != "" {
		return bridge.FromURL(url)
	}
	return bridge.FromFile(file)
}

func run(src bridge.Source, funcName, argList, strArg, startExport string, listOnly bool) error {
	ctx := context.Background()

	b, err := bridge.New(ctx, bridge.WithStartExport(startExport))
	if err != nil {
		return fmt.Errorf("create bridge: %w", err)
	}
	defer b.Close(ctx)

	timer := imports.NewTimer(b)
	fetch := imports.NewFetch(b, nil)
	for _, m := range []imports.Module{
		imports.NewConsole(b, nil),
		imports.NewRandom(b),
		imports.NewClock(),
		timer,
		fetch,
	} {
		if err := b.RegisterModule(m); err != nil {
			return fmt.Errorf("register %s: %w", m.Namespace(), err)
		}
	}

	inst, err := b.Load(ctx, src)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer inst.Close(ctx)

	defs := inst.Definitions()
	names := inst.Exports()
	sort.Strings(names)

	fmt.Printf("Module: %s\n\nExported functions:\n", src)
	for _, name := range names {
		fmt.Printf("  %s\n", formatSignature(name, defs[name]))
	}

	if listOnly {
		return nil
	}

	if funcName == "" {
		funcName = pickEntryPoint(names)
		if funcName == "" {
			fmt.Printf("\nNo function specified and no obvious entry point.\n")
			fmt.Printf("Use -func to specify a function to call.\n")
			return nil
		}
	}

	def, ok := defs[funcName]
	if !ok {
		return fmt.Errorf("no export named %s", funcName)
	}

	var results []uint64
	if strArg != "" {
		fmt.Printf("\nCalling %s(%q)...\n", funcName, strArg)
		results, err = inst.CallString(ctx, funcName, strArg)
	} else {
		args, perr := parseArgs(argList, def.ParamTypes())
		if perr != nil {
			return perr
		}
		fmt.Printf("\nCalling %s(%s)...\n", funcName, argList)
		results, err = inst.Call(ctx, funcName, args...)
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	for i, r := range results {
		fmt.Printf("Result: %s\n", formatValue(r, resultType(def, i)))
	}

	if err := pump(ctx, timer, fetch); err != nil {
		return fmt.Errorf("deliver callbacks: %w", err)
	}

	if herr := b.TakeLastError(); herr != nil {
		fmt.Printf("\nLast host error: %v\n", herr)
	}
	return nil
}

// pump polls the timer and fetch capabilities until nothing is
// pending, so scheduled callbacks run before the process exits.
func pump(ctx context.Context, timer *imports.Timer, fetch *imports.Fetch) error {
	deadline := time.Now().Add(30 * time.Second)
	for timer.PendingCount() > 0 || fetch.InflightCount() > 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("callbacks still pending after 30s")
		}
		if _, err := timer.Poll(ctx); err != nil {
			return err
		}
		if _, err := fetch.Poll(ctx); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func pickEntryPoint(names []string) string {
	for _, candidate := range []string{"run", "main"} {
		for _, name := range names {
			if name == candidate {
				return candidate
			}
		}
	}
	if len(names) == 1 {
		return names[0]
	}
	return ""
}

func parseArgs(argList string, types []api.ValueType) ([]uint64, error) {
	if argList == "" {
		if len(types) != 0 {
			return nil, fmt.Errorf("function takes %d arguments, none given", len(types))
		}
		return nil, nil
	}
	parts := strings.Split(argList, ",")
	if len(parts) != len(types) {
		return nil, fmt.Errorf("function takes %d arguments, got %d", len(types), len(parts))
	}
	args := make([]uint64, len(parts))
	for i, part := range parts {
		v, err := parseValue(strings.TrimSpace(part), types[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseValue(s string, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(s, 0, 32)
		if err != nil {
			return 0, err
		}
		return api.EncodeI32(int32(v)), nil
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return 0, err
		}
		return api.EncodeI64(v), nil
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return 0, err
		}
		return api.EncodeF32(float32(v)), nil
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return api.EncodeF64(v), nil
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}

func formatValue(v uint64, t api.ValueType) string {
	switch t {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	default:
		return strconv.FormatUint(v, 10)
	}
}

func resultType(def api.FunctionDefinition, i int) api.ValueType {
	types := def.ResultTypes()
	if i < len(types) {
		return types[i]
	}
	return api.ValueTypeI64
}

func formatSignature(name string, def api.FunctionDefinition) string {
	if def == nil {
		return name + "(?)"
	}
	var params []string
	for _, t := range def.ParamTypes() {
		params = append(params, api.ValueTypeName(t))
	}
	var results []string
	for _, t := range def.ResultTypes() {
		results = append(results, api.ValueTypeName(t))
	}
	sig := name + "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		sig += " -> " + strings.Join(results, ", ")
	}
	return sig
}
