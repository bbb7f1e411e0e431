package server

// Settings carries the deployment context a Construct or Call request runs
// under. Component code reads these to know its project, stack, and whether
// the deployment is a dry run.
type Settings struct {
	// Organization is the organization of the current deployment. Empty
	// on the wire means the default organization.
	Organization string

	// Project is the project of the current deployment.
	Project string

	// Stack is the stack of the current deployment.
	Stack string

	// Config is the stack configuration visible to the component.
	Config map[string]string

	// ConfigSecretKeys lists the config keys whose values are secret.
	ConfigSecretKeys []string

	// Parallel is the engine's degree of parallelism.
	Parallel int

	// MonitorEndpoint is the address of the engine's resource monitor.
	MonitorEndpoint string

	// DryRun reports whether the deployment is a preview.
	DryRun bool
}

// defaultOrganization is substituted when the engine sends no organization.
const defaultOrganization = "organization"

func newSettings(organization, project, stack string, config map[string]string,
	secretKeys []string, parallel int, monitorEndpoint string, dryRun bool) Settings {
	if organization == "" {
		organization = defaultOrganization
	}
	return Settings{
		Organization:     organization,
		Project:          project,
		Stack:            stack,
		Config:           config,
		ConfigSecretKeys: secretKeys,
		Parallel:         parallel,
		MonitorEndpoint:  monitorEndpoint,
		DryRun:           dryRun,
	}
}
