package gpu

import (
	"log"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Device is the compute backend handed to the transcription engine.
type Device string

const (
	DeviceCUDA   Device = "cuda"
	DeviceVulkan Device = "vulkan"
	DeviceCPU    Device = "cpu"
)

var (
	cachedDevice Device
	detectOnce   sync.Once
)

// probes are swapped in tests.
var (
	lookPath = exec.LookPath
	statPath = os.Stat
)

// ResolveDevice picks the compute backend. An explicit override other than
// "auto" wins untouched; otherwise prefer CUDA, then Vulkan, then CPU.
// Probe failures fall through silently to the next tier.
func ResolveDevice(override string) Device {
	override = strings.ToLower(strings.TrimSpace(override))
	if override != "" && override != "auto" {
		return Device(override)
	}
	return detectDevice()
}

// detectDevice probes once and caches; safe to call multiple times.
func detectDevice() Device {
	detectOnce.Do(func() {
		cachedDevice = probeDevice()
		log.Printf("[gpu] selected compute device: %s", cachedDevice)
	})
	return cachedDevice
}

func probeDevice() Device {
	if hasCUDA() {
		return DeviceCUDA
	}
	if hasVulkan() {
		return DeviceVulkan
	}
	return DeviceCPU
}

func hasCUDA() bool {
	if _, err := statPath("/proc/driver/nvidia/version"); err == nil {
		return true
	}
	if _, err := lookPath("nvidia-smi"); err == nil {
		return true
	}
	return false
}

func hasVulkan() bool {
	if _, err := lookPath("vulkaninfo"); err == nil {
		return true
	}
	for _, lib := range []string{
		"/usr/lib/x86_64-linux-gnu/libvulkan.so.1",
		"/usr/lib/libvulkan.so.1",
	} {
		if _, err := statPath(lib); err == nil {
			return true
		}
	}
	return false
}
