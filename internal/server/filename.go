package server

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var windowsDeviceNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true,
	"LPT1": true, "LPT2": true, "LPT3": true,
}

// SecureFilename reduces an uploaded file name to a safe flat name: ASCII
// letters, digits and "._-", whitespace folded to "_", no path components.
// The result may be empty.
func SecureFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune(' ')
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		}
	}

	name = strings.Join(strings.Fields(b.String()), "_")

	b.Reset()
	for _, r := range name {
		if r == '.' || r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	name = strings.Trim(b.String(), "._")

	if stem, _, _ := strings.Cut(name, "."); windowsDeviceNames[strings.ToUpper(stem)] {
		name = "_" + name
	}
	return name
}
