package speech

import (
	"fmt"
	"os/exec"
)

func detectBackend() (backend, error) {
	for _, bin := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(bin); err == nil {
			return espeakBackend(path), nil
		}
	}
	return backend{}, fmt.Errorf("%w: install espeak-ng or espeak", ErrUnsupported)
}
