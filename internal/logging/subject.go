package logging

import "strings"

// FormatSubject builds the host/item/stage subject string used in console output.
func FormatSubject(host, itemID, stage string) string {
	host = strings.TrimSpace(host)
	itemID = strings.TrimSpace(itemID)
	stage = strings.TrimSpace(stage)
	parts := make([]string, 0, 3)
	if host != "" {
		parts = append(parts, displayHost(host))
	}
	switch {
	case itemID != "" && stage != "":
		parts = append(parts, "Item #"+itemID+" ("+stage+")")
	case itemID != "":
		parts = append(parts, "Item #"+itemID)
	case stage != "":
		parts = append(parts, stage)
	}
	return strings.Join(parts, " · ")
}

// displayHost renders short host identifiers in caps and longer ones in
// title case, so "imx" reads as IMX while "turbo" reads as Turbo.
func displayHost(host string) string {
	if len(host) <= 3 {
		return strings.ToUpper(host)
	}
	return strings.ToUpper(host[:1]) + strings.ToLower(host[1:])
}
