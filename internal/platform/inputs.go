package platform

import (
	"fmt"
	"image"
	"os"
	"strconv"
)

// displayInput builds the screen grabbing input for goos.
func displayInput(goos string, index int, bounds image.Rectangle, frameRate int) InputSpec {
	rate := strconv.Itoa(frameRate)
	size := fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy())

	switch goos {
	case "darwin":
		return InputSpec{
			Format:  "avfoundation",
			Device:  fmt.Sprintf("Capture screen %d:none", index),
			Options: []string{"-framerate", rate, "-capture_cursor", "1"},
		}
	case "windows":
		return InputSpec{
			Format: "gdigrab",
			Device: "desktop",
			Options: []string{
				"-framerate", rate,
				"-offset_x", strconv.Itoa(bounds.Min.X),
				"-offset_y", strconv.Itoa(bounds.Min.Y),
				"-video_size", size,
			},
		}
	default:
		display := os.Getenv("DISPLAY")
		if display == "" {
			display = ":0"
		}
		return InputSpec{
			Format:  "x11grab",
			Device:  fmt.Sprintf("%s+%d,%d", display, bounds.Min.X, bounds.Min.Y),
			Options: []string{"-framerate", rate, "-video_size", size},
		}
	}
}

// cameraInput builds the camera input for goos. An empty device selects the
// platform default.
func cameraInput(goos string, device string, frameRate int) InputSpec {
	rate := strconv.Itoa(frameRate)

	switch goos {
	case "darwin":
		if device == "" {
			device = "0"
		}
		return InputSpec{Format: "avfoundation", Device: device + ":none", Options: []string{"-framerate", rate}}
	case "windows":
		if device == "" {
			device = "video=Integrated Camera"
		}
		return InputSpec{Format: "dshow", Device: device, Options: []string{"-framerate", rate}}
	default:
		if device == "" {
			device = "/dev/video0"
		}
		return InputSpec{Format: "v4l2", Device: device, Options: []string{"-framerate", rate}}
	}
}
