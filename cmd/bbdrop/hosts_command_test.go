package main

import (
	"strings"
	"testing"
)

func TestHostsListsEnabledHosts(t *testing.T) {
	configPath, _ := writeTestConfig(t)

	out, err := runCLI(t, configPath, "hosts")
	if err != nil {
		t.Fatalf("hosts: %v", err)
	}
	requireContains(t, out, "imx")
	requireContains(t, out, "*")
	if strings.Contains(out, "turbo") {
		t.Fatalf("disabled host listed: %q", out)
	}
}
