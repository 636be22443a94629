package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"

	"github.com/bramblechain/bramble/importer"
)

// tomlSettings mirrors the teacher's cmd/mive decoder configuration so that
// TOML keys line up with Go struct field names verbatim, rather than toml's
// default case-folding.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// simConfig is the whole simulator's TOML document.
type simConfig struct {
	Importer importer.Config
	Scenario string // name of a built-in demo scenario to run
}

func defaultSimConfig() simConfig {
	return simConfig{
		Importer: importer.DefaultConfig(),
		Scenario: "linear",
	}
}

func loadSimConfig(file string, cfg *simConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}
