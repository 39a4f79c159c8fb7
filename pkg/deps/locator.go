package deps

import "context"

// Locator finds the on-disk crate a dependency declaration refers to.
type Locator interface {
	// Key identifies the crate a request resolves to. Requests with equal
	// keys are located once per resolution.
	Key(from *Project, dep Dependency) string

	// Locate loads the crate that dep, declared by from, refers to.
	Locate(ctx context.Context, from *Project, dep Dependency) (*Project, error)

	// Pinned reports whether the lockfile selects dep for from. Optional
	// dependencies are only followed when pinned.
	Pinned(from *Project, dep Dependency) bool
}
