package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"embed"
	"encoding/json"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIFS embed.FS

var getOpenAPIJSON = sync.OnceValues(func() ([]byte, error) {
	data, err := openAPIFS.ReadFile("openapi.yaml")
	if err != nil {
		return nil, err
	}

	// yaml.v3 decodes mappings with string keys into map[string]interface{},
	// which encoding/json handles directly.
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
})
