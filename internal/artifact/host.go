package artifact

import (
	"os/exec"
	"runtime"
	"strings"
)

// DetectHost collects best-effort host metadata for artifact reproducibility
// fields. Every probe degrades to "unknown".
func DetectHost() HostInfo {
	return HostInfo{
		OS:     runtime.GOOS,
		Arch:   hostArch(),
		Kernel: kernelVersion(),
		GitSHA: gitSHA(),
	}
}

// hostArch maps Go architecture names onto the selector vocabulary used for
// qemu targets.
func hostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "riscv64":
		return "riscv64"
	case "386":
		return "x86"
	}
	return runtime.GOARCH
}

func kernelVersion() string {
	out, err := exec.Command("uname", "-r").Output()
	if err != nil {
		return "unknown"
	}
	if v := strings.TrimSpace(string(out)); v != "" {
		return v
	}
	return "unknown"
}

func gitSHA() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	if sha := strings.TrimSpace(string(out)); sha != "" {
		return sha
	}
	return "unknown"
}
