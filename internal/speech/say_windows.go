package speech

import (
	"fmt"
	"os/exec"
)

func detectBackend() (backend, error) {
	for _, bin := range []string{"powershell", "pwsh"} {
		if path, err := exec.LookPath(bin); err == nil {
			return sapiBackend(path), nil
		}
	}
	return backend{}, fmt.Errorf("%w: powershell not found", ErrUnsupported)
}
