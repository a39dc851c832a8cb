package device

import (
	clpkg "github.com/robvanmieghem/go-opencl/cl"

	"github.com/adaptivepow/core/apowerr"
	"github.com/adaptivepow/core/applog"
)

// EnumerateOpenCL lists every OpenCL device across every platform.
func EnumerateOpenCL(log *applog.Logger, includeCPU bool) ([]*clpkg.Device, error) {
	deviceType := clpkg.DeviceTypeGPU
	if includeCPU {
		deviceType = clpkg.DeviceTypeAll
	}

	platforms, err := clpkg.GetPlatforms()
	if err != nil {
		return nil, apowerr.Wrap(apowerr.NoSuchDevice, "enumerate platforms", err)
	}

	devices := make([]*clpkg.Device, 0, 4)
	for _, platform := range platforms {
		platformDevices, err := clpkg.GetDevices(platform, deviceType)
		if err != nil {
			if log != nil {
				log.Warn("enumerate devices failed", "platform", platform.Name(), "error", err)
			}
			continue
		}
		devices = append(devices, platformDevices...)
	}
	if len(devices) == 0 {
		return nil, apowerr.New(apowerr.NoSuchDevice, "no suitable opencl devices found")
	}
	return devices, nil
}

// Excluded reports whether deviceID appears in the exclusion list
// parsed from the -E flag.
func Excluded(deviceID int, excludedList []int) bool {
	for _, excluded := range excludedList {
		if deviceID == excluded {
			return true
		}
	}
	return false
}
