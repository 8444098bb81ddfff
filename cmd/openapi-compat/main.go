// Command openapi-compat fails when a revised API document drops a path,
// an operation or a documented response code that a baseline document has.
// Without -revision the document registered by the forum docs package is used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"forum/docs"

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"patch": true, "head": true, "options": true,
}

// surface maps path -> method -> set of response codes.
type surface map[string]map[string]map[string]bool

func main() {
	basePath := flag.String("base", "", "baseline OpenAPI document (YAML or JSON)")
	revisionPath := flag.String("revision", "", "revised OpenAPI document; defaults to the built-in forum doc")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base document: %v\n", err)
		os.Exit(1)
	}

	var revision surface
	if *revisionPath == "" {
		revision, err = builtin()
	} else {
		revision, err = loadFile(*revisionPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision document: %v\n", err)
		os.Exit(1)
	}

	if issues := breakingChanges(base, revision); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}
	fmt.Println("openapi compatibility check passed")
}

func loadFile(path string) (surface, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(raw)
}

// builtin renders the document the server serves under /api/swagger.
func builtin() (surface, error) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return nil, err
	}
	return parse([]byte(doc))
}

// parse accepts YAML or JSON, since JSON documents are valid YAML.
func parse(raw []byte) (surface, error) {
	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("missing top-level paths field")
	}

	out := make(surface, len(doc.Paths))
	for path, entries := range doc.Paths {
		for method, entry := range entries {
			method = strings.ToLower(strings.TrimSpace(method))
			op := stringKeys(entry)
			if !httpMethods[method] || op == nil {
				continue
			}
			if out[path] == nil {
				out[path] = make(map[string]map[string]bool)
			}
			codes := make(map[string]bool)
			for code := range stringKeys(op["responses"]) {
				if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
					codes[code] = true
				}
			}
			out[path][method] = codes
		}
	}
	return out, nil
}

// stringKeys normalizes a decoded YAML mapping. Unquoted status codes decode
// as integers, which yields map[any]any.
func stringKeys(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out
	default:
		return nil
	}
}

// breakingChanges lists everything base documents that revision no longer does.
func breakingChanges(base, revision surface) []string {
	var issues []string
	for path, ops := range base {
		revOps, ok := revision[path]
		if !ok {
			issues = append(issues, "removed path: "+path)
			continue
		}
		for method, codes := range ops {
			revCodes, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for code := range codes {
				if !revCodes[code] {
					issues = append(issues, fmt.Sprintf("removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	sort.Strings(issues)
	return issues
}
