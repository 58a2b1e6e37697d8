package detect

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DetectStacks inspects the manifests in root and returns the detected
// technology stacks with their recommended tool sets. Multiple stacks
// may coexist in one root (e.g. a Go backend with a Node frontend).
func DetectStacks(root string) ([]Stack, error) {
	var stacks []Stack

	detectors := []func(string) (*Stack, error){
		detectGo,
		detectNode,
		detectPython,
		detectRust,
	}

	for _, d := range detectors {
		stack, err := d(root)
		if err != nil {
			return nil, err
		}
		if stack != nil {
			stacks = append(stacks, *stack)
		}
	}

	return stacks, nil
}

// detectGo parses go.mod for the Go version and a known web framework.
func detectGo(root string) (*Stack, error) {
	path := filepath.Join(root, "go.mod")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	stack := &Stack{
		Language:         "go",
		RecommendedTools: []string{"format", "type-check", "lint", "test", "build"},
	}

	frameworks := map[string]string{
		"github.com/gin-gonic/gin": "gin",
		"github.com/labstack/echo": "echo",
		"github.com/gofiber/fiber": "fiber",
		"github.com/go-chi/chi":    "chi",
		"github.com/gorilla/mux":   "gorilla",
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if v, ok := strings.CutPrefix(line, "go "); ok {
			stack.Version = v
			continue
		}
		for mod, name := range frameworks {
			if strings.Contains(line, mod) {
				stack.Framework = name
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	return stack, nil
}

// packageJSON is the subset of package.json stack detection needs.
type packageJSON struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Workspaces      []string          `json:"workspaces"`
}

// detectNode parses package.json, classifying the frontend framework
// and whether TypeScript checking applies.
func detectNode(root string) (*Stack, error) {
	path := filepath.Join(root, "package.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	stack := &Stack{
		Language: "node",
		Version:  pkg.Version,
	}

	deps := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for k, v := range pkg.Dependencies {
		deps[k] = v
	}
	for k, v := range pkg.DevDependencies {
		deps[k] = v
	}

	switch {
	case deps["next"] != "":
		stack.Framework = "next"
	case deps["react"] != "":
		stack.Framework = "react"
	case deps["vue"] != "":
		stack.Framework = "vue"
	case deps["svelte"] != "":
		stack.Framework = "svelte"
	case deps["express"] != "":
		stack.Framework = "express"
	}

	stack.RecommendedTools = []string{"format", "lint", "test", "security"}
	if deps["typescript"] != "" || fileExists(filepath.Join(root, "tsconfig.json")) {
		// Type checking only applies when the project compiles TypeScript.
		stack.RecommendedTools = append([]string{"type-check"}, stack.RecommendedTools...)
	}

	return stack, nil
}

// pyproject is the subset of pyproject.toml stack detection needs.
type pyproject struct {
	Project struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
}

func detectPython(root string) (*Stack, error) {
	path := filepath.Join(root, "pyproject.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var proj pyproject
	if err := toml.Unmarshal(data, &proj); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	stack := &Stack{
		Language:         "python",
		Version:          proj.Project.Version,
		RecommendedTools: []string{"format", "type-check", "lint", "test", "security"},
	}

	for _, dep := range proj.Project.Dependencies {
		name := strings.ToLower(strings.FieldsFunc(dep, func(r rune) bool {
			return r == '=' || r == '>' || r == '<' || r == '~' || r == '[' || r == ' '
		})[0])
		switch name {
		case "django":
			stack.Framework = "django"
		case "flask":
			stack.Framework = "flask"
		case "fastapi":
			stack.Framework = "fastapi"
		}
	}

	return stack, nil
}

// cargoManifest is the subset of Cargo.toml stack detection needs.
type cargoManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
	} `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

func detectRust(root string) (*Stack, error) {
	path := filepath.Join(root, "Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	stack := &Stack{
		Language:         "rust",
		Version:          manifest.Package.Version,
		RecommendedTools: []string{"format", "lint", "test", "build"},
	}

	for dep := range manifest.Dependencies {
		switch dep {
		case "actix-web":
			stack.Framework = "actix"
		case "axum":
			stack.Framework = "axum"
		case "rocket":
			stack.Framework = "rocket"
		}
	}

	return stack, nil
}

// pnpmWorkspace is the subset of pnpm-workspace.yaml multi-root
// discovery needs.
type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

// WorkspaceRoots expands a monorepo root into its member package
// directories using pnpm-workspace.yaml or package.json workspaces.
// Returns just the root itself when neither is present.
func WorkspaceRoots(root string) ([]string, error) {
	var globs []string

	if data, err := os.ReadFile(filepath.Join(root, "pnpm-workspace.yaml")); err == nil {
		var ws pnpmWorkspace
		if err := yaml.Unmarshal(data, &ws); err != nil {
			return nil, fmt.Errorf("parsing pnpm-workspace.yaml: %w", err)
		}
		globs = ws.Packages
	} else if data, err := os.ReadFile(filepath.Join(root, "package.json")); err == nil {
		var pkg packageJSON
		if err := json.Unmarshal(data, &pkg); err == nil {
			globs = pkg.Workspaces
		}
	}

	if len(globs) == 0 {
		return []string{root}, nil
	}

	var roots []string
	for _, g := range globs {
		matches, err := filepath.Glob(filepath.Join(root, g))
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				roots = append(roots, m)
			}
		}
	}
	if len(roots) == 0 {
		roots = []string{root}
	}
	return roots, nil
}

// ExpandRoots normalizes the configured roots for a run: empty means
// the current directory, and each root that is a monorepo expands into
// its member package directories. Duplicates across overlapping
// workspace globs collapse.
func ExpandRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		roots = []string{"."}
	}

	var out []string
	seen := make(map[string]bool)
	for _, root := range roots {
		members, err := WorkspaceRoots(root)
		if err != nil {
			return nil, err
		}
		for _, m := range members {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
