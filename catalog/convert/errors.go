package convert

import "fmt"

// ConvertError represents a transcode failure for one file.
type ConvertError struct {
	Input    string
	Message  string
	Original error
}

func (e *ConvertError) Error() string {
	if e.Original != nil {
		return fmt.Sprintf("Convert error: %s: %s: %v", e.Input, e.Message, e.Original)
	}
	return fmt.Sprintf("Convert error: %s: %s", e.Input, e.Message)
}

func (e *ConvertError) Unwrap() error {
	return e.Original
}
