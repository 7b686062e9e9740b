package neobyte

import "strings"

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename replaces characters that are not allowed in filenames on common platforms with "_".
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}

// DisplayName is the filename offered to the client for a result with the given title.
func DisplayName(title string, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return SanitizeFilename(title) + ext
}
