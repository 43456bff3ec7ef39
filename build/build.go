// Package build runs the whole pipeline for one build-script invocation:
// link directives, translation, post-processing and the artifact write.
package build

import (
	"io"
	"runtime/debug"
	"time"

	"github.com/teranos/avbindgen/buildenv"
	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/logger"
	"github.com/teranos/avbindgen/postprocess"
	"github.com/teranos/avbindgen/translate"
	"github.com/teranos/avbindgen/typegen"
)

// Run validates cfg, emits the link directives to directives and writes the
// artifact. It returns the artifact path. The work happens on a single
// worker goroutine; a panic there is returned as a translation error.
func Run(cfg *buildenv.Config, engine typegen.Engine, directives io.Writer) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return runWorker(cfg, func() (string, error) {
		if err := EmitLinkDirectives(directives, cfg.LibDir()); err != nil {
			return "", err
		}
		return generateAndWrite(cfg, engine)
	})
}

// Generate produces the post-processed artifact text without writing
// anything.
func Generate(cfg *buildenv.Config, engine typegen.Engine) (string, error) {
	text, err := translate.Invoke(cfg, engine)
	if err != nil {
		return "", err
	}
	if cfg.Serde() {
		logger.ComponentLogger("build").Debugw("adding serde attributes",
			logger.FieldCount, postprocess.Count(text))
	}
	return postprocess.Apply(text, cfg.Serde()), nil
}

func generateAndWrite(cfg *buildenv.Config, engine typegen.Engine) (string, error) {
	log := logger.ComponentLogger("build")
	start := time.Now()

	text, err := Generate(cfg, engine)
	if err != nil {
		return "", err
	}
	path := cfg.OutputPath()
	if err := WriteArtifact(path, text); err != nil {
		return "", err
	}
	log.Infow("bindings written",
		logger.FieldPath, path,
		logger.FieldSize, len(text),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return path, nil
}

// runWorker runs fn on its own goroutine under cfg's stack limit and waits
// for it.
func runWorker(cfg *buildenv.Config, fn func() (string, error)) (path string, err error) {
	defer raiseMaxStack(cfg.StackSize)()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				path = ""
				err = errors.NewTranslationError("build worker panicked: %v", r)
			}
		}()
		path, err = fn()
	}()
	<-done
	return path, err
}

// raiseMaxStack lifts the goroutine stack limit to at least size bytes and
// returns a func restoring the previous limit. A size below the current
// limit leaves it unchanged: lowering it would turn deep recursion into a
// fatal error.
func raiseMaxStack(size int) (restore func()) {
	if size <= 0 {
		return func() {}
	}
	log := logger.ComponentLogger("build")
	old := debug.SetMaxStack(size)
	if old >= size {
		debug.SetMaxStack(old)
		log.Infow("stack size not applied, current limit is already larger",
			logger.FieldStackSize, size,
			logger.FieldStackLimit, old)
		return func() {}
	}
	log.Debugw("stack limit raised", logger.FieldStackSize, size, logger.FieldStackLimit, old)
	return func() { debug.SetMaxStack(old) }
}
