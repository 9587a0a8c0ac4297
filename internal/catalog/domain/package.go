package catalog

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// VerifyPackage checks that a sensor package file declares every catalog
// sensor. A sensor counts as declared when its entity id or object id appears
// as a scalar anywhere in the document.
func (c *Catalog) VerifyPackage(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	seen := make(map[string]struct{})
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("catalog: parse sensor package: %w", err)
		}
		collectScalars(&doc, seen)
	}

	var missing []string
	for _, s := range c.sensors {
		_, byID := seen[s.ID]
		_, byObject := seen[s.ObjectID()]
		if !byID && !byObject {
			missing = append(missing, s.ID)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("%w: missing from package: %s", ErrCatalogMismatch, strings.Join(missing, ", "))
}

func collectScalars(node *yaml.Node, seen map[string]struct{}) {
	if node == nil {
		return
	}
	if node.Kind == yaml.ScalarNode {
		seen[strings.TrimSpace(node.Value)] = struct{}{}
		return
	}
	for _, child := range node.Content {
		collectScalars(child, seen)
	}
}
