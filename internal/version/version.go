package version

import "fmt"

const (
	// Version is the current version of affkit
	Version = "0.1.0"
)

// GetVersion returns the current version string
func GetVersion() string {
	return fmt.Sprintf("affkit %s", Version)
}
