//go:build js || wasip1

package h264decoder

// startPlatformProcess fails where child processes cannot be spawned.
func startPlatformProcess(width, height int) (platformProcess, error) {
	return nil, ErrPlatformNotSupported
}

// checkPlatformAvailability returns false for unsupported platforms.
func checkPlatformAvailability() bool {
	return false
}
