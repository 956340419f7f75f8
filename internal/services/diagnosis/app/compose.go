// Package app composes diagnosis modules into the root HTTP handler and
// runs the server.
package app

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/louisbranch/diagnosis/internal/services/diagnosis/module"
)

// ComposeInput carries the modules to mount.
type ComposeInput struct {
	Modules []module.Module
}

// Compose builds a root HTTP handler from modules. Each module owns one
// prefix; a non-root prefix also answers its slashless form.
func Compose(input ComposeInput) (http.Handler, error) {
	root := http.NewServeMux()
	seen := make(map[string]string)
	for _, feature := range input.Modules {
		if feature == nil {
			return nil, fmt.Errorf("module is nil")
		}
		mount, prefix, err := resolveMount(feature)
		if err != nil {
			return nil, err
		}
		if err := mountModule(root, feature.ID(), prefix, mount.Handler, seen); err != nil {
			return nil, err
		}
		if alias := slashlessAlias(prefix); alias != "" {
			if err := mountModule(root, feature.ID(), alias, mount.Handler, seen); err != nil {
				return nil, err
			}
		}
	}
	return root, nil
}

func mountModule(root *http.ServeMux, id string, pattern string, handler http.Handler, seen map[string]string) error {
	if previous, ok := seen[pattern]; ok {
		return fmt.Errorf("module %q duplicates prefix %q owned by module %q", id, pattern, previous)
	}
	seen[pattern] = id
	root.Handle(pattern, handler)
	return nil
}

func resolveMount(feature module.Module) (module.Mount, string, error) {
	mount, err := feature.Mount()
	if err != nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: %w", feature.ID(), err)
	}
	if err := validatePrefix(mount.Prefix); err != nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q has invalid prefix %q: %w", feature.ID(), mount.Prefix, err)
	}
	if mount.Handler == nil {
		return module.Mount{}, "", fmt.Errorf("mount module %q: handler is required", feature.ID())
	}
	return mount, mount.Prefix, nil
}

func validatePrefix(prefix string) error {
	if prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if strings.TrimSpace(prefix) != prefix {
		return fmt.Errorf("prefix must not include surrounding whitespace")
	}
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix must begin with /")
	}
	if !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("prefix must end with /")
	}
	return nil
}

func slashlessAlias(prefix string) string {
	if prefix == "/" {
		return ""
	}
	return strings.TrimSuffix(prefix, "/")
}
