// Copyright (C) 2018 Storj Labs, Inc.
// See LICENSE for copying information.

// Package cfgstruct binds the fields of a configuration struct to flags.
//
// Field names become kebab-case flag names; nested structs add a dotted
// prefix, so Store.AccessKey binds to "store.access-key". Embedded structs
// share the prefix of their parent. The "default" tag
// holds the default value and the "help" tag the usage text.
package cfgstruct

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/pflag"
)

// BindOpt is an option for the Bind method.
type BindOpt func(vars map[string]string, opts *bindOptions)

type bindOptions struct {
	testDefaults bool
}

// ConfDir sets the value of $CONFDIR in default tags.
func ConfDir(path string) BindOpt {
	return Var("CONFDIR", path)
}

// HomeDir sets the value of $HOME in default tags.
func HomeDir(path string) BindOpt {
	return Var("HOME", path)
}

// Var sets the value of $name in default tags.
func Var(name, value string) BindOpt {
	return func(vars map[string]string, opts *bindOptions) {
		vars[name] = filepath.Clean(os.ExpandEnv(value))
	}
}

// UseTestDefaults uses the "testDefault" tag instead of "default" where present.
func UseTestDefaults() BindOpt {
	return func(vars map[string]string, opts *bindOptions) {
		opts.testDefaults = true
	}
}

// Bind sets flags on a FlagSet that match the configuration struct
// 'config'. This works by traversing the config struct using the 'reflect'
// package. Panics on programmer errors.
func Bind(flags *pflag.FlagSet, config interface{}, opts ...BindOpt) {
	ptrtype := reflect.TypeOf(config)
	if ptrtype.Kind() != reflect.Ptr {
		panic(fmt.Sprintf("invalid config type: %#v. Expecting pointer to struct.", config))
	}

	vars := map[string]string{}
	var options bindOptions
	for _, opt := range opts {
		opt(vars, &options)
	}

	bindConfig(flags, "", reflect.ValueOf(config).Elem(), vars, options)
}

var durationType = reflect.TypeOf(time.Duration(0))

func bindConfig(flags *pflag.FlagSet, prefix string, val reflect.Value, vars map[string]string, options bindOptions) {
	if val.Kind() != reflect.Struct {
		panic(fmt.Sprintf("invalid config type: %#v. Expecting struct.", val.Interface()))
	}
	typ := val.Type()

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		fieldval := val.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			bindConfig(flags, prefix, fieldval, vars, options)
			continue
		}

		name := prefix + hyphenate(snakeCase(field.Name))
		if tag, ok := field.Tag.Lookup("name"); ok {
			name = prefix + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindConfig(flags, name+".", fieldval, vars, options)
			continue
		}

		help := field.Tag.Get("help")
		def, ok := field.Tag.Lookup("default")
		if options.testDefaults {
			if testDef, ok2 := field.Tag.Lookup("testDefault"); ok2 {
				def, ok = testDef, true
			}
		}
		if !ok {
			panic(fmt.Sprintf("no default for field %s%s", prefix, field.Name))
		}
		def = expand(vars, def)

		fieldaddr := fieldval.Addr().Interface()
		switch {
		case field.Type == durationType:
			flags.DurationVar(fieldaddr.(*time.Duration), name, mustParse(time.ParseDuration(def)), help)
		case field.Type.Kind() == reflect.String:
			flags.StringVar(fieldaddr.(*string), name, def, help)
		case field.Type.Kind() == reflect.Bool:
			flags.BoolVar(fieldaddr.(*bool), name, mustParse(strconv.ParseBool(def)), help)
		case field.Type.Kind() == reflect.Int:
			flags.IntVar(fieldaddr.(*int), name, int(mustParse(strconv.ParseInt(def, 0, strconv.IntSize))), help)
		case field.Type.Kind() == reflect.Int64:
			flags.Int64Var(fieldaddr.(*int64), name, mustParse(strconv.ParseInt(def, 0, 64)), help)
		case field.Type.Kind() == reflect.Uint64:
			flags.Uint64Var(fieldaddr.(*uint64), name, mustParse(strconv.ParseUint(def, 0, 64)), help)
		case field.Type.Kind() == reflect.Float64:
			flags.Float64Var(fieldaddr.(*float64), name, mustParse(strconv.ParseFloat(def, 64)), help)
		default:
			panic(fmt.Sprintf("invalid field type: %s", field.Type.String()))
		}
	}
}

func expand(vars map[string]string, val string) string {
	return os.Expand(val, func(key string) string {
		if value, ok := vars[key]; ok {
			return value
		}
		return "$" + key
	})
}

func mustParse[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

func snakeCase(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// start a new word unless inside an acronym
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func hyphenate(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}
