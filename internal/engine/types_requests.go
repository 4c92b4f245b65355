package engine

// RunRequest represents a request for one gate pass.
type RunRequest struct {
	// PageURL is the address the run operates on. The gate is a no-op
	// unless it equals Options.AllowedPage exactly.
	PageURL string
}

// ActivateRequest represents a request to store a license token.
type ActivateRequest struct {
	// Token is stored verbatim once the verifier accepts it
	Token string

	// Fingerprint overrides the derived fingerprint when set
	Fingerprint string
}

// LockRequest represents a request to set or clear the lock flag.
type LockRequest struct {
	// Locked sets the flag when true and clears it when false
	Locked bool

	// Fingerprint overrides the derived fingerprint when set
	Fingerprint string
}

// StatusRequest represents a request for the gate status.
type StatusRequest struct {
	// Fingerprint overrides the derived fingerprint when set
	Fingerprint string
}
