package defs

import (
	"fmt"
	"strings"
)

// URLResource builds the backend endpoint for a resource, ex: https://verifier:8881/v2/agents/<uuid>
func URLResource(baseURL string, apiVersion int, resourceType, resourceID string) string {
	return fmt.Sprintf("%s/v%d/%s/%s", strings.TrimRight(baseURL, "/"), apiVersion, resourceType, resourceID)
}

func URLlocalFeed(httpAddr string) string {
	return fmt.Sprintf("ws://%s%s/feed", httpAddr, PathPrefix)
}
