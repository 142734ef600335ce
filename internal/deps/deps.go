// Package deps reports on the external tools scribeflow shells out to.
package deps

import (
	"os/exec"
	"strings"
)

// Status represents the installation status of an external tool
type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string
	Required  bool
	Purpose   string
}

type tool struct {
	name        string
	versionArgs []string
	required    bool
	purpose     string
}

// The capture and delivery paths shell out to these.
var tools = []tool{
	{"pw-record", []string{"--version"}, true, "microphone capture (pipewire)"},
	{"pw-cli", []string{"--version"}, true, "pipewire liveness check"},
	{"wl-copy", []string{"--version"}, true, "clipboard delivery (wl-clipboard)"},
	{"notify-send", []string{"--version"}, false, "desktop notifications (libnotify)"},
}

// CheckAll returns the status of every external tool, required first.
func CheckAll() []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		out = append(out, check(t))
	}
	return out
}

// MissingRequired returns the names of required tools that are not installed.
func MissingRequired() []string {
	var missing []string
	for _, s := range CheckAll() {
		if s.Required && !s.Installed {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func check(t tool) Status {
	status := Status{Name: t.name, Required: t.required, Purpose: t.purpose}

	path, err := exec.LookPath(t.name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	// best effort; some tools print the version on stderr or not at all
	output, err := exec.Command(path, t.versionArgs...).CombinedOutput()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}
