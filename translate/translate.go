// Package translate turns a build configuration into a translation request
// and runs it through an engine.
package translate

import (
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/headers"
	"github.com/teranos/avbindgen/logger"
	"github.com/teranos/avbindgen/rules"
	"github.com/teranos/avbindgen/typegen"
)

// CTypesPrefix is the crate the generated code takes C scalar types from.
const CTypesPrefix = "libc"

// ClangArgs builds the compiler flags: one -I per include root in priority
// order, symbol visibility, the sysroot, then the extra arguments.
func ClangArgs(cfg *buildenv.Config) ([]string, error) {
	roots := cfg.IncludeRoots()
	args := make([]string, 0, len(roots)+2)
	for _, root := range roots {
		args = append(args, "-I"+root)
	}
	args = append(args, "-fvisibility=default", "--sysroot="+cfg.Sysroot())

	if strings.TrimSpace(cfg.ExtraClangArgs) == "" {
		return args, nil
	}
	extra, err := shellquote.Split(cfg.ExtraClangArgs)
	if err != nil {
		err = errors.Wrapf(err, "failed to split %s", buildenv.EnvName("extra_clang_args"))
		return nil, errors.Mark(err, errors.ErrConfig)
	}
	return append(args, extra...), nil
}

// Options are the normalization switches every build uses.
func Options() typegen.Options {
	opts := typegen.Options{
		EnumStyle:       typegen.EnumStyleRustified,
		PrependEnumName: false,
		DeriveEq:        true,
		SizeTIsUsize:    true,
		CTypesPrefix:    CTypesPrefix,
	}
	rules.DefaultSuppressions().Apply(&opts)
	return opts
}

// Headers returns the resolved header paths: the platform header when one
// is configured, then the selected groups with the base group last.
func Headers(cfg *buildenv.Config) []string {
	var paths []string
	if cfg.PlatformHeader != "" {
		paths = append(paths, headers.Resolve(cfg.PlatformRoots(), cfg.PlatformHeader))
	}
	selected := headers.Flatten(headers.Select(cfg.Flags()))
	return append(paths, headers.ResolveAll(cfg.IncludeRoots(), selected)...)
}

// NewRequest assembles the translation request for cfg.
func NewRequest(cfg *buildenv.Config) (typegen.Request, error) {
	args, err := ClangArgs(cfg)
	if err != nil {
		return typegen.Request{}, err
	}

	var callbacks typegen.ParseCallbacks = rules.Callbacks{}
	if logger.ShouldLogTrace(logger.Verbosity) {
		callbacks = tracingCallbacks{inner: callbacks, log: logger.ComponentLogger("rules")}
	}

	return typegen.Request{
		Headers:   Headers(cfg),
		ClangArgs: args,
		Options:   Options(),
		Callbacks: callbacks,
	}, nil
}

// Invoke runs one translation and returns the raw artifact text. Engine
// failures are returned with their diagnostic unchanged.
func Invoke(cfg *buildenv.Config, engine typegen.Engine) (string, error) {
	log := logger.ComponentLogger("translate")

	req, err := NewRequest(cfg)
	if err != nil {
		return "", err
	}
	log.Debugw("translating",
		logger.FieldCount, len(req.Headers),
		logger.FieldFeatures, cfg.EnabledFeatures(),
		"clang_args", req.ClangArgs)

	start := time.Now()
	res, err := engine.Translate(req)
	if err != nil {
		if errors.Is(err, typegen.ErrNoDeclarations) {
			err = errors.WithHintf(err, "check that %s contains the library headers", cfg.IncludeRoots()[0])
		}
		return "", errors.WrapTranslation(err)
	}

	for _, name := range res.DroppedMacros {
		log.Warnw("macro dropped: no integer kind holds its value", logger.FieldMacro, name)
	}
	for _, w := range res.Warnings {
		log.Debugw("skipped", "reason", w)
	}
	if len(res.Suppressed) > 0 {
		log.Debugw("suppressed declarations", logger.FieldCount, len(res.Suppressed))
	}
	log.Infow("translation finished",
		logger.FieldCount, res.Declarations,
		"files", len(res.Files),
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	return res.Text, nil
}
