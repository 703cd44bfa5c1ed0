package bundle

import (
	"encoding/json"
	"regexp"
	"strings"
)

var identRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// EnvDefines maps process.env.NAME to the JSON-quoted value of NAME for every
// entry in environ ("KEY=value" pairs, as returned by os.Environ). Names that
// are not valid JavaScript identifiers are skipped. Entries in extra override
// the environment.
func EnvDefines(environ []string, extra map[string]string) map[string]string {
	defines := make(map[string]string, len(environ)+len(extra))
	set := func(name, value string) {
		if !identRe.MatchString(name) {
			return
		}
		quoted, err := json.Marshal(value)
		if err != nil {
			return
		}
		defines["process.env."+name] = string(quoted)
	}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		set(name, value)
	}
	for name, value := range extra {
		set(name, value)
	}
	return defines
}
