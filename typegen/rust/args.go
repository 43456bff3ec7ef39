package rust

import (
	"strings"

	"github.com/teranos/avbindgen/typegen/cparse"
)

// scannerConfig extracts the flags the header scanner understands from a
// clang-style argument list: -I, -isystem, --sysroot, -D and -U. Other
// flags (-fvisibility=..., -target ...) do not change what is declared
// and are ignored.
func scannerConfig(args []string) cparse.Config {
	var cfg cparse.Config
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() string {
			if i+1 < len(args) {
				i++
				return args[i]
			}
			return ""
		}

		switch {
		case arg == "-I" || arg == "-isystem":
			if dir := next(); dir != "" {
				cfg.IncludeDirs = append(cfg.IncludeDirs, dir)
			}
		case strings.HasPrefix(arg, "-isystem"):
			cfg.IncludeDirs = append(cfg.IncludeDirs, strings.TrimPrefix(arg, "-isystem"))
		case strings.HasPrefix(arg, "-I"):
			cfg.IncludeDirs = append(cfg.IncludeDirs, arg[2:])
		case arg == "--sysroot" || arg == "-isysroot":
			cfg.Sysroot = next()
		case strings.HasPrefix(arg, "--sysroot="):
			cfg.Sysroot = strings.TrimPrefix(arg, "--sysroot=")
		case arg == "-D":
			cfg.Defines = append(cfg.Defines, parseDefine(next()))
		case strings.HasPrefix(arg, "-D"):
			cfg.Defines = append(cfg.Defines, parseDefine(arg[2:]))
		case arg == "-U":
			cfg.Undefines = append(cfg.Undefines, next())
		case strings.HasPrefix(arg, "-U"):
			cfg.Undefines = append(cfg.Undefines, arg[2:])
		}
	}
	return cfg
}

func parseDefine(s string) cparse.Define {
	name, value, _ := strings.Cut(s, "=")
	return cparse.Define{Name: name, Value: value}
}
