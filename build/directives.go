package build

import (
	"fmt"
	"io"

	"github.com/teranos/avbindgen/errors"
)

// StaticLibs are linked into every consumer, whatever the enabled features.
var StaticLibs = []string{"avcodec", "avfilter", "avformat", "avutil", "swresample"}

// EmitLinkDirectives writes one static link directive per StaticLibs entry,
// then the native search path.
func EmitLinkDirectives(w io.Writer, libDir string) error {
	for _, lib := range StaticLibs {
		if _, err := fmt.Fprintf(w, "cargo:rustc-link-lib=static=%s\n", lib); err != nil {
			return errors.WrapWrite(err, "failed to emit link directives")
		}
	}
	if _, err := fmt.Fprintf(w, "cargo:rustc-link-search=native=%s\n", libDir); err != nil {
		return errors.WrapWrite(err, "failed to emit link directives")
	}
	return nil
}
