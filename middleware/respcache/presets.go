package respcache

import (
	"sort"
	"strings"
	"time"
)

// Short mantém respostas por 1 minuto (listas que mudam com frequência).
func Short() Options {
	return Options{TTL: time.Minute, Name: "short"}
}

// Medium é o padrão: 5 minutos.
func Medium() Options {
	return Options{TTL: 5 * time.Minute, Name: "medium"}
}

// Long mantém respostas por 1 hora (conteúdo estático do catálogo).
func Long() Options {
	return Options{TTL: time.Hour, Name: "long"}
}

var presets = map[string]func() Options{
	"short":  Short,
	"medium": Medium,
	"long":   Long,
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
