package config

// Config is the top-level configuration parsed from the optional YAML project file.
// Every field can also be supplied on the command line, which takes precedence.
type Config struct {
	Entry   string            `yaml:"entry"   json:"entry"`
	Inputs  []string          `yaml:"inputs"  json:"inputs"`
	Output  string            `yaml:"output"  json:"output"`
	Port    int               `yaml:"port"    json:"port"`
	Rel     string            `yaml:"rel"     json:"rel"`
	Less    string            `yaml:"less"    json:"less"`
	Lessc   string            `yaml:"lessc"   json:"lessc"`
	Command string            `yaml:"command" json:"command"`
	HTTP    []string          `yaml:"http"    json:"http"`
	HTTPS   []string          `yaml:"https"   json:"https"`
	Env     map[string]string `yaml:"env"     json:"env"`
	Timing  TimingConfig      `yaml:"timing"  json:"timing"`
}

// TimingConfig overrides the fixed intervals of the build and reload loop.
// Values are Go duration strings ("5s", "250ms").
type TimingConfig struct {
	StartupGrace string `yaml:"startupGrace" json:"startupGrace"`
	Keepalive    string `yaml:"keepalive"    json:"keepalive"`
	Debounce     string `yaml:"debounce"     json:"debounce"`
}
