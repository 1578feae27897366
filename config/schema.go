package config

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

// schemaSource mirrors the Config struct. It is unified with the raw YAML
// before unmarshalling so typos and type mismatches surface with a path
// instead of a zero value.
const schemaSource = `
endpoint: {
	base_url: string
	timeout?: string
}
intervals?: {
	dashboard?: string
	history?:   string
}
history_limit?: int & >0
thresholds?: [...{
	key:    string
	label?: string
	min:    number
	max:    number
}]
rules?: [...{
	id:       string
	expr:     string
	message?: string
}]
logging?: {
	level?:  string
	format?: "json" | "text"
	loki?: {
		enabled?: bool
		url?:     string
		labels?: {[string]: string}
	}
}
telemetry?: {
	enabled?: bool
}
notify?: {
	enabled?:   bool
	broker?:    string
	topic?:     string
	client_id?: string
}
live_view?: {
	listen?:          string
	allowed_origins?: [...string]
}
`

func validateSchema(path string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	file, err := cueyaml.Extract(path, data)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("build config %s: %w", path, err)
	}
	if err := schema.Unify(value).Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("config %s does not match schema: %w", path, err)
	}
	return nil
}
