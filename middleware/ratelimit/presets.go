package ratelimit

import (
	"sort"
	"strings"
	"time"
)

// Strict serve para rotas sensíveis (login, reset de senha): 5 a cada 15 minutos.
func Strict() Options {
	return Options{Window: 15 * time.Minute, Max: 5, Name: "strict"}
}

func Moderate() Options {
	return Options{Window: 15 * time.Minute, Max: 100, Name: "moderate"}
}

func Lenient() Options {
	return Options{Window: 15 * time.Minute, Max: 1000, Name: "lenient"}
}

var presets = map[string]func() Options{
	"strict":   Strict,
	"moderate": Moderate,
	"lenient":  Lenient,
}

// Preset retorna as opções do preset com esse nome.
func Preset(name string) (Options, bool) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Options{}, false
	}
	return fn(), true
}

func PresetNames() []string {
	out := make([]string, 0, len(presets))
	for k := range presets {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
