package ipfs

import "fmt"

// CommandError describes a failed ipfs CLI invocation.
type CommandError struct {
	Args     []string
	Stderr   string
	Original error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ipfs %v failed: %s", e.Args, e.Stderr)
	}
	return fmt.Sprintf("ipfs %v failed: %v", e.Args, e.Original)
}

func (e *CommandError) Unwrap() error {
	return e.Original
}
