package domain

import "time"

// InstallOptions are passed through to the package install collaborator.
type InstallOptions struct {
	Password                   string
	ActivateRemoteSiteSettings bool
	SecurityType               string // "FULL", "NONE", "PUSH"
}

// RetryOptions is the bounded synchronous retry policy handed to the
// install and deploy collaborators. The dependency layer never retries
// on its own.
type RetryOptions struct {
	Retries          int
	RetryInterval    time.Duration
	RetryIntervalAdd time.Duration
}

// DefaultRetryOptions returns the standard package install retry policy.
func DefaultRetryOptions() *RetryOptions {
	return &RetryOptions{
		Retries:          20,
		RetryInterval:    5 * time.Second,
		RetryIntervalAdd: 30 * time.Second,
	}
}
