//go:build !windows

package process

import "os/exec"

func configureSysProcAttr(_ *exec.Cmd) {}
