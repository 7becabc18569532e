package constants

// Branch names recognized by the stock pipeline triggers
const (
	// BranchMain is the production branch
	BranchMain = "main"

	// BranchDevelop is the integration branch
	BranchDevelop = "develop"

	// BranchTestActions is the pipeline verification branch
	BranchTestActions = "test-actions"
)

// Environment labels assigned to pushed images; the label doubles as the
// image tag
const (
	// EnvMain is the label for images built from the main branch
	EnvMain = "main"

	// EnvDev is the label for images built from the develop branch
	EnvDev = "dev"

	// EnvTestActions is the label for images built from the test-actions branch
	EnvTestActions = "test-actions"
)

// Defaults applied when the pipeline manifest omits a field
const (
	// DefaultImage is the image name built for the DTBase platform
	DefaultImage = "dtbase"

	// DefaultBuildfile is the recipe consumed by the external build tool
	DefaultBuildfile = "Dockerfile"

	// DefaultManifestPath is where the pipeline manifest is looked up
	DefaultManifestPath = "dt-pipeline.yml"
)
