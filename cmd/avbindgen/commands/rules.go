package commands

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/avbindgen/errors"
	"github.com/teranos/avbindgen/rules"
	"github.com/teranos/avbindgen/translate"
	"github.com/teranos/avbindgen/typegen"
)

// RulesCmd explains the translation rules for a single name
var RulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Explain how a macro, enum variant or function is translated",
	Long: `Show the decision the translation rules make for one name, without
reading any header.

Examples:
  avbindgen rules macro AV_CH_FRONT_LEFT 1
  avbindgen rules macro AV_CODEC_FLAG_GLOBAL_HEADER 4194304
  avbindgen rules variant AV_CODEC_ID_FIRST_AUDIO
  avbindgen rules suppressed sqrtl`,
}

var rulesMacroCmd = &cobra.Command{
	Use:   "macro <name> <value>",
	Short: "Show the integer kind chosen for a macro",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := parseMacroValue(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), explainMacro(args[0], value))
		return nil
	},
}

var rulesVariantCmd = &cobra.Command{
	Use:   "variant <name>",
	Short: "Show how an enum variant is emitted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), explainVariant(args[0]))
		return nil
	},
}

var rulesSuppressedCmd = &cobra.Command{
	Use:   "suppressed <name>",
	Short: "Show whether a function or type is left out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), explainSuppressed(args[0]))
		return nil
	},
}

func init() {
	RulesCmd.AddCommand(rulesMacroCmd)
	RulesCmd.AddCommand(rulesVariantCmd)
	RulesCmd.AddCommand(rulesSuppressedCmd)
}

// parseMacroValue accepts C-style decimal, hex and octal values. Values
// above MaxInt64 wrap the way the header scanner stores them.
func parseMacroValue(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return v, nil
	}
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, errors.WithHint(errors.Newf("invalid macro value %q", s), "use a decimal, 0x hex or 0 octal integer")
	}
	return int64(u), nil
}

func explainMacro(name string, value int64) string {
	cb := rules.Callbacks{}
	if cb.WillParseMacro(name) == typegen.MacroIgnore {
		return name + ": ignored"
	}
	if k := cb.IntMacro(name, value); k != nil {
		if !k.Holds(value) {
			return fmt.Sprintf("%s: dropped, %d does not fit %s", name, value, k.Name)
		}
		typ := k.Name
		if k.CType != "" {
			typ = translate.CTypesPrefix + "::" + k.CType
		}
		return fmt.Sprintf("%s: %s = %s", name, typ, k.Literal(value))
	}
	if value >= 0 && value <= math.MaxUint32 {
		return fmt.Sprintf("%s: u32 = %d (default)", name, value)
	}
	return fmt.Sprintf("%s: dropped, no integer kind holds %d", name, value)
}

func explainVariant(name string) string {
	return fmt.Sprintf("%s: %s", name, rules.Callbacks{}.EnumVariantBehavior("", name, 0))
}

func explainSuppressed(name string) string {
	s := rules.DefaultSuppressions()
	if entry, ok := s.SuppressesFunction(name); ok {
		if entry == name {
			return name + ": function suppressed"
		}
		return fmt.Sprintf("%s: function suppressed by pattern %s", name, entry)
	}
	if reason, ok := s.SuppressesType(name); ok {
		return fmt.Sprintf("%s: type %s", name, reason)
	}
	return name + ": not suppressed"
}
