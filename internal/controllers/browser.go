package controllers

import (
	"os/exec"
	"runtime"

	"shortly/internal/errors"
)

// SystemBrowser opens URLs with the platform's default handler
type SystemBrowser struct {
	goos  string
	start func(name string, args ...string) error
}

// NewSystemBrowser targets the running platform
func NewSystemBrowser() *SystemBrowser {
	return &SystemBrowser{
		goos: runtime.GOOS,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
	}
}

// Open launches the browser without waiting for it to exit
func (b *SystemBrowser) Open(url string) error {
	var err error
	switch b.goos {
	case "darwin":
		err = b.start("open", url)
	case "linux", "freebsd", "openbsd", "netbsd":
		err = b.start("xdg-open", url)
	case "windows":
		err = b.start("cmd", "/c", "start", url)
	default:
		return errors.Newf("opening a browser is not supported on %s", b.goos)
	}
	if err != nil {
		return errors.Wrap(err, "failed to launch browser")
	}
	return nil
}
