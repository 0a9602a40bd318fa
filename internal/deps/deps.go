// Package deps reports the availability of the external binaries the pipeline
// shells out to, so the orchestrator can fail fast with an actionable message
// instead of failing deep inside a provider attempt.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency podscribe relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckDecoder reports the availability of the media decoder binary.
func CheckDecoder(ffmpegBinary string) Status {
	statuses := CheckBinaries([]Requirement{{
		Name:        "FFmpeg",
		Command:     ffmpegBinary,
		Description: "Decodes remote media into normalized PCM audio segments",
	}})
	return statuses[0]
}
