package providers

import (
	"fmt"
	"strconv"
	"strings"

	pkgerrors "github.com/kwesidadzie/bundlehub-backend/pkg/errors"
)

// networkKeys maps category slugs to the network identifier both upstreams
// accept. Exact slug match first, then substring containment.
var networkKeys = map[string]string{
	"mtn":        "mtn",
	"telecel":    "telecel",
	"vodafone":   "telecel",
	"airteltigo": "at",
	"at":         "at",
}

// resolveNetworkKey maps a category slug onto an upstream network identifier.
// An unresolvable slug is a permanent mapping failure, never a retry.
func resolveNetworkKey(slug string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(slug))
	if key, ok := networkKeys[normalized]; ok {
		return key, nil
	}
	for candidate, key := range networkKeys {
		if strings.Contains(normalized, candidate) {
			return key, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("no upstream network for category %q", slug))
}

// parseCapacityGb reads the numeric capacity out of a product size label such
// as "5GB" or "500MB".
func parseCapacityGb(size string) (float64, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(size), " ", ""))
	divisor := 1.0
	switch {
	case strings.HasSuffix(normalized, "gb"):
		normalized = strings.TrimSuffix(normalized, "gb")
	case strings.HasSuffix(normalized, "mb"):
		normalized = strings.TrimSuffix(normalized, "mb")
		divisor = 1024.0
	}
	value, err := strconv.ParseFloat(normalized, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("unparseable bundle size %q", size))
	}
	return value / divisor, nil
}
