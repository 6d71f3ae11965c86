package product

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"

	"github.com/eupsci/eupsbuild/pkg/buildenv"
)

type parserCtx struct {
	ctx          context.Context
	options      map[string]ScriptOption
	optionValues map[string]string
	yamlCache    map[string]interface{}
	filepath     string
	definition   *Definition
}

func getCtx(thread *starlark.Thread) *parserCtx {
	return thread.Local("parserCtx").(*parserCtx)
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func iterableToStringSlice(input starlarkIterable, field string) ([]string, error) {
	if value, ok := input.(*starlark.List); ok && value == nil {
		return []string{}, nil
	}

	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		switch value := item.(type) {
		case starlark.String:
			result = append(result, value.GoString())
		default:
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
	}
	return result, nil
}

func dictToStringMap(input *starlark.Dict, field string) (map[string]string, error) {
	result := map[string]string{}
	if input == nil {
		return result, nil
	}

	for _, rawKey := range input.Keys() {
		key, ok := rawKey.(starlark.String)
		if !ok {
			return nil, eris.Errorf("found key type %s in %s but only strings are supported", rawKey.Type(), field)
		}

		rawValue, _, err := input.Get(rawKey)
		if err != nil {
			return nil, err
		}

		value, ok := rawValue.(starlark.String)
		if !ok {
			return nil, eris.Errorf("found value of type %s for key %s but only strings are supported", rawValue.Type(), key.GoString())
		}

		result[key.GoString()] = value.GoString()
	}
	return result, nil
}

// * Builtin functions

func starProduct(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var dirs *starlark.List
	var presetup *starlark.Dict

	def := new(Definition)
	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &def.Name, "version?", &def.Version,
		"version_string?", &def.VersionString, "base_version?", &def.BaseVersion, "dirs?", &dirs,
		"ignore?", &def.Ignore, "presetup?", &presetup, "eups_product_path?", &def.EupsProductPath)
	if err != nil {
		return nil, err
	}

	if def.Name == "" {
		return nil, eris.New("product() requires a name")
	}

	def.Dirs, err = iterableToStringSlice(dirs, "dirs")
	if err != nil {
		return nil, err
	}

	def.Presetup, err = dictToStringMap(presetup, "presetup")
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	if ctx.definition != nil {
		return nil, eris.Errorf("product() was already called for %s", ctx.definition.Name)
	}
	ctx.definition = def

	return def, nil
}

func starOption(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.String
	var help string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue, "help?", &help)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	ctx.options[name] = ScriptOption{
		DefaultValue: defaultValue,
		Help:         help,
	}

	value, ok := ctx.optionValues[name]
	if ok {
		return starlark.String(value), nil
	}

	return defaultValue, nil
}

func starGetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.String

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &name, &defaultValue)
	if err != nil {
		return nil, err
	}

	value, present := os.LookupEnv(name)
	if !present {
		return defaultValue, nil
	}
	return starlark.String(value), nil
}

func starReadYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var yamlFile string
	var yamlKey string
	var defaultValue starlark.Value

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &yamlFile, &yamlKey, &defaultValue)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	if !filepath.IsAbs(yamlFile) {
		yamlFile = filepath.Join(filepath.Dir(ctx.filepath), yamlFile)
	}

	doc, loaded := ctx.yamlCache[yamlFile]
	if !loaded {
		content, err := os.ReadFile(yamlFile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open file %s", yamlFile)
		}

		err = yaml.Unmarshal(content, &doc)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse file %s", yamlFile)
		}
		ctx.yamlCache[yamlFile] = doc
	}

	value := doc
	for _, key := range strings.Split(yamlKey, ".") {
		mapping, ok := value.(map[string]interface{})
		if !ok {
			break
		}
		value, ok = mapping[key]
		if !ok {
			value = nil
			break
		}
	}

	if value == nil {
		if defaultValue != nil {
			return defaultValue, nil
		}
		return nil, eris.Errorf("key %s not found in %s", yamlKey, yamlFile)
	}

	return interfaceToStarlark(value)
}

func interfaceToStarlark(value interface{}) (starlark.Value, error) {
	switch value := value.(type) {
	case string:
		return starlark.String(value), nil
	case int:
		return starlark.MakeInt(value), nil
	case bool:
		return starlark.Bool(value), nil
	case float64:
		return starlark.Float(value), nil
	case []interface{}:
		items := make([]starlark.Value, len(value))
		for idx, raw := range value {
			item, err := interfaceToStarlark(raw)
			if err != nil {
				return nil, err
			}
			items[idx] = item
		}
		return starlark.NewList(items), nil
	case map[string]interface{}:
		dict := starlark.NewDict(len(value))
		for k, v := range value {
			item, err := interfaceToStarlark(v)
			if err != nil {
				return nil, err
			}
			err = dict.SetKey(starlark.String(k), item)
			if err != nil {
				return nil, err
			}
		}
		return dict, nil
	default:
		return nil, eris.Errorf("can't convert %v to a starlark value", value)
	}
}

func logBuiltin(level string) func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var msg string
		err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &msg)
		if err != nil {
			return nil, err
		}

		ctx := getCtx(thread)
		pos := thread.CallFrame(1).Pos
		msg = fmt.Sprintf("%s:%d:%d: %s", filepath.Base(ctx.filepath), pos.Line, pos.Col, msg)

		switch level {
		case "info":
			buildenv.Log(ctx.ctx).Info().Msg(msg)
		case "warn":
			buildenv.Log(ctx.ctx).Warn().Msg(msg)
		default:
			return nil, eris.New(msg)
		}
		return starlark.None, nil
	}
}

func statBuiltin(wantDir bool) func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path)
		if err != nil {
			return nil, err
		}

		if !filepath.IsAbs(path) {
			path = filepath.Join(filepath.Dir(getCtx(thread).filepath), path)
		}

		info, err := os.Stat(path)
		if err == nil && info.IsDir() == wantDir {
			return starlark.True, nil
		}
		return starlark.False, nil
	}
}

// Load parses and executes the given product.star file. options carries
// key=value overrides from the command line for option() lookups.
func Load(ctx context.Context, filename string, options map[string]string) (*Definition, map[string]ScriptOption, error) {
	filename, err := filepath.Abs(filename)
	if err != nil {
		return nil, nil, err
	}

	builtins := starlark.StringDict{
		"OS":        starlark.String(runtime.GOOS),
		"ARCH":      starlark.String(runtime.GOARCH),
		"info":      starlark.NewBuiltin("info", logBuiltin("info")),
		"warn":      starlark.NewBuiltin("warn", logBuiltin("warn")),
		"error":     starlark.NewBuiltin("error", logBuiltin("error")),
		"option":    starlark.NewBuiltin("option", starOption),
		"getenv":    starlark.NewBuiltin("getenv", starGetenv),
		"read_yaml": starlark.NewBuiltin("read_yaml", starReadYaml),
		"isdir":     starlark.NewBuiltin("isdir", statBuiltin(true)),
		"isfile":    starlark.NewBuiltin("isfile", statBuiltin(false)),
		"product":   starlark.NewBuiltin("product", starProduct),
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			buildenv.Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := parserCtx{
		ctx:          ctx,
		filepath:     filename,
		options:      make(map[string]ScriptOption),
		optionValues: options,
		yamlCache:    make(map[string]interface{}),
	}
	thread.SetLocal("parserCtx", &threadCtx)

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "failed to read file")
	}

	_, err = starlark.ExecFile(thread, filepath.Base(filename), script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, nil, eris.Errorf("failed to execute %s:\n%s", filename, evalError.Backtrace())
		}
		return nil, nil, eris.Wrap(err, "failed to execute")
	}

	if threadCtx.definition == nil {
		return nil, nil, eris.Errorf("%s did not call product()", filename)
	}

	return threadCtx.definition, threadCtx.options, nil
}
