//go:build !linux && !darwin && !windows

package speech

func detectBackend() (backend, error) {
	return backend{}, ErrUnsupported
}
