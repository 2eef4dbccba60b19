package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/lablabs/storefront-client/internal/ast"
)

// CacheKey derives the session cache key for a document and its variables:
//
//	query:"Name"-fragment:"Frag"-length:<loc.end>-name:<json>-...
//
// Variables are listed in sorted name order so the key does not depend on map
// iteration.
func CacheKey(doc *ast.Document, vars map[string]interface{}) string {
	var parts []string
	if doc != nil {
		for _, def := range doc.Definitions {
			switch d := def.(type) {
			case *ast.OperationDefinition:
				parts = append(parts, d.Operation+":"+strconv.Quote(d.Name))
			case *ast.FragmentDefinition:
				parts = append(parts, "fragment:"+strconv.Quote(d.Name))
			}
		}
	}
	parts = append(parts, "length:"+strconv.Itoa(doc.End()))

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+":"+encodeValue(vars[name]))
	}
	return strings.Join(parts, "-")
}

func encodeValue(v interface{}) string {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(buf)
}
