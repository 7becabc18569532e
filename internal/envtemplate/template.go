// Package envtemplate enumerates the environment variables the DTBase
// tooling requires before tests or deployment tooling may run. It renders
// the shell export template operators copy into their secret store and
// checks an execution context against the enumeration.
package envtemplate

import (
	"fmt"
	"io"
	"os"
)

// Variable groups, in template order
const (
	GroupTestDatabase = "test database"
	GroupRegistry     = "container registry"
	GroupAPIKeys      = "external APIs"
	GroupAzureBackend = "azure backend"
)

// Variable is one named configuration input required before dependent
// tooling runs. Placeholder is the value the rendered template carries and
// is itself never a valid value.
type Variable struct {
	Name        string
	Group       string
	Purpose     string
	Placeholder string

	// Validate rejects well-formed but unusable values; nil means any
	// non-placeholder string is acceptable
	Validate func(value string) error
}

// Registry returns the required variables in stable template order
func Registry() []Variable {
	return []Variable{
		{
			Name:        "DT_SQL_TESTUSER",
			Group:       GroupTestDatabase,
			Purpose:     "username for the test database",
			Placeholder: "<test-db-username>",
		},
		{
			Name:        "DT_SQL_TESTPASS",
			Group:       GroupTestDatabase,
			Purpose:     "password for the test database",
			Placeholder: "<test-db-password>",
		},
		{
			Name:        "DT_SQL_TESTHOST",
			Group:       GroupTestDatabase,
			Purpose:     "hostname of the test database server",
			Placeholder: "<test-db-host>",
		},
		{
			Name:        "DT_SQL_TESTPORT",
			Group:       GroupTestDatabase,
			Purpose:     "port of the test database server",
			Placeholder: "<test-db-port>",
			Validate:    validatePort,
		},
		{
			Name:        "DT_SQL_TESTDBNAME",
			Group:       GroupTestDatabase,
			Purpose:     "name of the test database",
			Placeholder: "<test-db-name>",
		},
		{
			Name:        "DT_DOCKER_USER",
			Group:       GroupRegistry,
			Purpose:     "username for the container registry",
			Placeholder: "<registry-username>",
		},
		{
			Name:        "DT_DOCKER_PASS",
			Group:       GroupRegistry,
			Purpose:     "password for the container registry",
			Placeholder: "<registry-password>",
		},
		{
			Name:        "DT_OPENWEATHERMAP_APIKEY",
			Group:       GroupAPIKeys,
			Purpose:     "API key for the OpenWeatherMap data ingress",
			Placeholder: "<openweathermap-api-key>",
		},
		{
			Name:        "DT_HYPER_APIKEY",
			Group:       GroupAPIKeys,
			Purpose:     "API key for the Hyper.ag data ingress",
			Placeholder: "<hyper-api-key>",
		},
		{
			Name:        "AZURE_STORAGE_KEY",
			Group:       GroupAzureBackend,
			Purpose:     "access key for the remote state storage account",
			Placeholder: "<azure-storage-key>",
		},
		{
			Name:        "AZURE_STORAGE_ACCOUNT",
			Group:       GroupAzureBackend,
			Purpose:     "name of the remote state storage account",
			Placeholder: "<azure-storage-account>",
		},
		{
			Name:        "AZURE_KEYVAULT_AUTH_VIA_CLI",
			Group:       GroupAzureBackend,
			Purpose:     "whether key vault auth goes through the azure CLI",
			Placeholder: "<true-or-false>",
			Validate:    validateBool,
		},
	}
}

// Groups returns the group names in template order
func Groups() []string {
	return []string{GroupTestDatabase, GroupRegistry, GroupAPIKeys, GroupAzureBackend}
}

// Render writes the shell export template. Every value is a placeholder;
// operators replace them before sourcing the file.
func Render(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "# DTBase environment template\n# Replace every placeholder, then source this file before running tests\n# or deployment tooling.\n"); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	for _, group := range Groups() {
		if _, err := fmt.Fprintf(w, "\n# %s\n", group); err != nil {
			return fmt.Errorf("failed to render template: %w", err)
		}
		for _, v := range Registry() {
			if v.Group != group {
				continue
			}
			if _, err := fmt.Fprintf(w, "export %s=\"%s\"\n", v.Name, v.Placeholder); err != nil {
				return fmt.Errorf("failed to render template: %w", err)
			}
		}
	}

	return nil
}

// CheckEnviron checks the process environment against the registry
func CheckEnviron() []Problem {
	return Check(os.LookupEnv)
}
