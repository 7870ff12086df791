package speech

import (
	"fmt"
	"os/exec"
)

func detectBackend() (backend, error) {
	path, err := exec.LookPath("say")
	if err != nil {
		return backend{}, fmt.Errorf("%w: say not found", ErrUnsupported)
	}
	return sayBackend(path), nil
}
