package desktop

import (
	"flag"
	"os"
	"runtime"

	"github.com/gen2brain/beeep"

	"code-intelligence.com/crashtriage/pkg/log"
)

// Notify sends a desktop notification, but only when the
// program is running in a desktop environment
func Notify(title, body string) {
	// just skip notifications when running in CI/CD or the program is
	// executed by go test
	if os.Getenv("CI") != "" || flag.Lookup("test.v") != nil {
		return
	}

	onWindows := runtime.GOOS == "windows"
	onMac := runtime.GOOS == "darwin"
	hasDisplayOnLinux := os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""

	if hasDisplayOnLinux || onWindows || onMac {
		err := beeep.Notify(title, body, "")
		if err != nil {
			// no more error handling as sending notifications is not that critical
			log.Debugf("unable to send desktop notification (%s): %v", title, err)
		}
	}
}
