package cliconfig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
)

// cgroupPath is the control-group membership file for the current process.
const cgroupPath = "/proc/self/cgroup"

var (
	// cgroupLine matches one cgroup entry: "id:subsystems:path".
	cgroupLine = regexp.MustCompile(`^\d+:[^:]*:(.+)$`)

	// containerIDTail matches the container identifiers runtimes embed at the
	// end of a cgroup path: a 64-char hex ID (Docker, containerd), a UUID
	// (ECS, Kubernetes), or a 32-char hex task ID with a suffix (Fargate).
	containerIDTail = regexp.MustCompile(
		`([0-9a-f]{64}|` +
			`[0-9a-f]{8}[-_][0-9a-f]{4}[-_][0-9a-f]{4}[-_][0-9a-f]{4}[-_][0-9a-f]{12}|` +
			`[0-9a-f]{32}-\d+)(?:\.scope)?$`)
)

// LoadHostInfo fills identity fields that were not configured explicitly:
// the hostname from the OS and, when running inside a container, the
// container ID from the process's cgroup file.
func LoadHostInfo(cfg *Config) error {
	if cfg.Hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return fmt.Errorf("read hostname: %w", err)
		}
		cfg.Hostname = h
	}

	// Absent or unparseable cgroup data just means no container ID.
	if cfg.ContainerID == "" {
		cfg.ContainerID = readContainerID(cgroupPath)
	}

	return nil
}

// readContainerID extracts the container ID from a cgroup file, or returns
// an empty string when the process does not run in a recognizable container.
func readContainerID(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	return parseContainerID(f)
}

// parseContainerID scans cgroup entries for a path ending in a container ID.
func parseContainerID(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := cgroupLine.FindStringSubmatch(scanner.Text())
		if len(m) != 2 {
			continue
		}
		if id := containerIDTail.FindStringSubmatch(m[1]); len(id) == 2 {
			return id[1]
		}
	}
	return ""
}
