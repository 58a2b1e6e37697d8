package tool

import (
	"fmt"
	"time"
)

// Params carries workspace settings into adapter constructors.
type Params struct {
	// Dir is the workspace root tools execute in.
	Dir string

	// Language selects the concrete command for polyglot tool ids,
	// e.g. type-check means `go vet` for go and `tsc` for node.
	Language string

	// Timeout bounds a single tool execution.
	Timeout time.Duration
}

// Constructor builds an adapter for one tool id.
type Constructor func(p Params) (Adapter, error)

// Registry binds tool ids to adapter constructors at build time.
type Registry map[string]Constructor

// commandTable maps tool id and language to the concrete command line.
// The first argv element must resolve on PATH.
var commandTable = map[string]map[string][]string{
	"format": {
		"go":     {"gofmt", "-l", "."},
		"node":   {"npx", "prettier", "--check", "."},
		"python": {"ruff", "format", "--check", "."},
		"rust":   {"cargo", "fmt", "--check"},
	},
	"type-check": {
		"go":     {"go", "vet", "./..."},
		"node":   {"npx", "tsc", "--noEmit"},
		"python": {"mypy", "."},
		"rust":   {"cargo", "check"},
	},
	"lint": {
		"go":     {"golangci-lint", "run"},
		"node":   {"npx", "eslint", "."},
		"python": {"ruff", "check", "."},
		"rust":   {"cargo", "clippy", "--", "-D", "warnings"},
	},
	"test": {
		"go":     {"go", "test", "./..."},
		"node":   {"npm", "test", "--"},
		"python": {"pytest"},
		"rust":   {"cargo", "test"},
	},
	"security": {
		"go":     {"govulncheck", "./..."},
		"node":   {"npm", "audit", "--audit-level=high"},
		"python": {"pip-audit"},
		"rust":   {"cargo", "audit"},
	},
	"build": {
		"go":     {"go", "build", "./..."},
		"node":   {"npm", "run", "build"},
		"python": {"python", "-m", "compileall", "-q", "."},
		"rust":   {"cargo", "build"},
	},
}

// toolTraits fixes each tool id's dimension, criticality, and whether
// its command accepts explicit file arguments.
var toolTraits = map[string]struct {
	dimension    Dimension
	critical     bool
	acceptsFiles bool
}{
	"format":     {DimCodeQuality, false, true},
	"type-check": {DimErrorDetection, true, false},
	"lint":       {DimCodeQuality, false, true},
	"test":       {DimTestingCoverage, true, false},
	"security":   {DimSecurityAudit, false, false},
	"build":      {DimBuildDeps, true, false},
}

// DefaultRegistry returns the built-in registry covering the canonical
// tool ids.
func DefaultRegistry() Registry {
	reg := make(Registry, len(toolTraits))
	for id := range toolTraits {
		reg[id] = commandConstructor(id)
	}
	return reg
}

// commandConstructor builds the Constructor for one tool id.
func commandConstructor(id string) Constructor {
	return func(p Params) (Adapter, error) {
		traits := toolTraits[id]

		lang := p.Language
		if lang == "" {
			lang = "go"
		}
		byLang, ok := commandTable[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, id)
		}
		argv, ok := byLang[lang]
		if !ok {
			return nil, fmt.Errorf("tool %s: no command for language %q", id, lang)
		}

		return NewCommandAdapter(CommandSpec{
			Tool:         id,
			Dimension:    traits.dimension,
			Critical:     traits.critical,
			Argv:         argv,
			AcceptsFiles: traits.acceptsFiles,
			Timeout:      p.Timeout,
			Dir:          p.Dir,
		}), nil
	}
}
