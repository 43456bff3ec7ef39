package translate

import (
	"go.uber.org/zap"

	"github.com/teranos/avbindgen/logger"
	"github.com/teranos/avbindgen/typegen"
)

// tracingCallbacks logs every decision of inner. Only installed at -vv.
type tracingCallbacks struct {
	inner typegen.ParseCallbacks
	log   *zap.SugaredLogger
}

func (c tracingCallbacks) WillParseMacro(name string) typegen.MacroParsingBehavior {
	b := c.inner.WillParseMacro(name)
	if b == typegen.MacroIgnore {
		c.log.Debugw("macro ignored", logger.FieldMacro, name)
	}
	return b
}

func (c tracingCallbacks) IntMacro(name string, value int64) *typegen.IntKind {
	k := c.inner.IntMacro(name, value)
	kind := "default"
	if k != nil {
		kind = k.String()
	}
	c.log.Debugw("macro kind", logger.FieldMacro, name, "value", value, logger.FieldKind, kind)
	return k
}

func (c tracingCallbacks) EnumVariantBehavior(enumName, variantName string, value int64) typegen.EnumVariantBehavior {
	b := c.inner.EnumVariantBehavior(enumName, variantName, value)
	if b != typegen.VariantDefault {
		c.log.Debugw("enum variant", "enum", enumName, logger.FieldVariant, variantName, "behavior", b.String())
	}
	return b
}
