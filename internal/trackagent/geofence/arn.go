package geofence

import (
	"fmt"
	"strings"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
)

// CollectionName resolves the short name of a geofence collection from its
// ARN: the last '/' part of the last ':' part. Empty parts are ignored, and
// the resource part must have at least two pieces.
func CollectionName(arn string) (string, error) {
	parts := splitNonEmpty(arn, ":")
	if len(parts) == 0 {
		return "", fmt.Errorf("%q: %w", arn, core.ErrInvalidArn)
	}
	resource := splitNonEmpty(parts[len(parts)-1], "/")
	if len(resource) <= 1 {
		return "", fmt.Errorf("%q has no collection name: %w", arn, core.ErrInvalidArn)
	}
	return resource[len(resource)-1], nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
