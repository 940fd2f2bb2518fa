package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/bincodec/schema"
	"github.com/wippyai/bincodec/synth"
)

func newPlanCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <schema> <type>",
		Short: "Show the synthesized wire plan of a type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, syn, t, err := a.lookup(args[0], args[1])
			if err != nil {
				return err
			}
			pv, err := syn.Describe(t.Go)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), renderPlan(t, pv, typeNamer(sc), a.styled(cmd)))
			return err
		},
	}
}

func newEncodeCommand(a *app) *cobra.Command {
	var asHex bool
	var output string

	cmd := &cobra.Command{
		Use:   "encode <schema> <type> <values.yaml>",
		Short: "Encode a YAML value with the synthesized codec",
		Long:  "Encode reads one YAML value of the type (\"-\" for stdin) and writes its binary form.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, syn, t, err := a.lookup(args[0], args[1])
			if err != nil {
				return err
			}
			src, err := readInput(cmd, args[2])
			if err != nil {
				return err
			}
			v, err := t.ReadYAML(src)
			if err != nil {
				return err
			}
			data, err := syn.Marshal(v)
			if err != nil {
				return err
			}
			a.log.Debug("encoded", zap.String("type", t.Name), zap.Int("bytes", len(data)))

			if asHex {
				data = []byte(hex.EncodeToString(data) + "\n")
			}
			if output != "" {
				return os.WriteFile(output, data, 0o644)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "write hex text instead of raw bytes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newDecodeCommand(a *app) *cobra.Command {
	var asHex bool

	cmd := &cobra.Command{
		Use:   "decode <schema> <type> <file>",
		Short: "Decode binary input and print it as YAML",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, syn, t, err := a.lookup(args[0], args[1])
			if err != nil {
				return err
			}
			data, err := readInput(cmd, args[2])
			if err != nil {
				return err
			}
			if asHex {
				data, err = hex.DecodeString(strings.Join(strings.Fields(string(data)), ""))
				if err != nil {
					return fmt.Errorf("decode hex: %w", err)
				}
			}
			v := t.New()
			if err := syn.Unmarshal(data, v); err != nil {
				return err
			}
			out, err := t.WriteYAML(v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&asHex, "hex", false, "input is hex text")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

// renderPlan formats a plan like PlanView.String, with schema type and
// member names in place of the Go ones, optionally styled for a terminal.
func renderPlan(t *schema.Type, pv *synth.PlanView, names *strings.Replacer, styled bool) string {
	fields := make(map[string]string, len(t.Members))
	for _, m := range t.Members {
		fields[m.Field] = m.Name
	}
	memberName := func(field string) string {
		if name, ok := fields[field]; ok {
			return name
		}
		return field
	}

	style := func(s lipgloss.Style) func(...string) string {
		if !styled {
			return func(strs ...string) string { return strings.Join(strs, " ") }
		}
		return s.Render
	}
	title, member, typ, help := style(headerStyle), style(memberStyle), style(strategyStyle), style(hintStyle)

	var b strings.Builder
	b.WriteString(title(t.Name))
	b.WriteString("\n")
	if pv.Base != "" {
		fmt.Fprintf(&b, "  base: %s\n", names.Replace(pv.Base))
	}
	switch {
	case pv.EncodeOnly:
		b.WriteString("  encode only\n")
	case pv.DecodeOnly:
		b.WriteString("  decode only\n")
	}
	fmt.Fprintf(&b, "  construction: %s\n", pv.Construction)
	for _, m := range pv.Members {
		fmt.Fprintf(&b, "  %2d %s %s", m.Position, member(fmt.Sprintf("%-16s", memberName(m.Name))), typ(names.Replace(m.Strategy)))
		var notes []string
		if m.Hint != "" {
			notes = append(notes, "order="+m.Hint)
		}
		if m.ReadOnly {
			notes = append(notes, "readonly")
		}
		if m.Binding != "" {
			notes = append(notes, "["+m.Binding+"]")
		}
		if len(notes) > 0 {
			b.WriteString(" " + help(strings.Join(notes, " ")))
		}
		b.WriteByte('\n')
	}
	if len(pv.Skipped) > 0 {
		skipped := make([]string, len(pv.Skipped))
		for i, f := range pv.Skipped {
			skipped[i] = memberName(f)
		}
		fmt.Fprintf(&b, "  %s\n", help("skipped: "+strings.Join(skipped, ", ")))
	}
	return b.String()
}
