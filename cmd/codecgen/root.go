package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/bincodec/schema"
	"github.com/wippyai/bincodec/synth"
)

// app carries the state shared by subcommands once flags and config are
// resolved.
type app struct {
	v   *viper.Viper
	cfg *Config
	log *zap.Logger
}

// NewRootCommand creates the codecgen command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: newViper()}

	rootCmd := &cobra.Command{
		Use:   "codecgen",
		Short: "Synthesize binary codecs from YAML schemas",
		Long: `codecgen compiles a YAML schema of record types and uses the bincodec
synthesizer to encode and decode values of those types.

Settings are read from ./codecgen.yaml, BINCODEC_* environment variables
and flags, in increasing precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default ./codecgen.yaml)")
	flags.String("string-prefix", "varint", "string length prefix: varint or fixed32")
	flags.Int("max-collection-length", synth.DefaultMaxCollectionLength, "largest decoded collection count")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("color", "auto", "styled output: auto, always or never")

	for key, flag := range map[string]string{
		"string_prefix":         "string-prefix",
		"max_collection_length": "max-collection-length",
		"log_level":             "log-level",
		"color":                 "color",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(newPlanCommand(a))
	rootCmd.AddCommand(newEncodeCommand(a))
	rootCmd.AddCommand(newDecodeCommand(a))
	rootCmd.AddCommand(newBrowseCommand(a))

	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.v.SetConfigFile(path)
	}
	cfg, err := loadConfig(a.v)
	if err != nil {
		return err
	}
	log, err := cfg.newLogger()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log
	synth.SetLogger(log.Named("synth"))
	return nil
}

// load compiles the schema at path and registers it with a fresh
// synthesizer.
func (a *app) load(path string) (*schema.Schema, *synth.Synthesizer, error) {
	sc, err := schema.Load(path)
	if err != nil {
		return nil, nil, err
	}
	syn := synth.New(a.cfg.synthConfig())
	if err := sc.Register(syn); err != nil {
		return nil, nil, err
	}
	a.log.Debug("schema loaded", zap.String("path", path), zap.Strings("types", sc.Names()))
	return sc, syn, nil
}

// lookup loads the schema and resolves one of its types.
func (a *app) lookup(path, name string) (*schema.Schema, *synth.Synthesizer, *schema.Type, error) {
	sc, syn, err := a.load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	t, ok := sc.Lookup(name)
	if !ok {
		return nil, nil, nil, fmt.Errorf("type %q not in schema (have %s)", name, strings.Join(sc.Names(), ", "))
	}
	return sc, syn, t, nil
}

// styled reports whether output to cmd should carry terminal styling.
func (a *app) styled(cmd *cobra.Command) bool {
	switch a.cfg.Color {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// typeNamer rewrites the Go spelling of schema types into their schema
// names, so plans print "composite point" rather than the struct literal.
func typeNamer(sc *schema.Schema) *strings.Replacer {
	types := append([]*schema.Type(nil), sc.Types()...)
	// Longer spellings first: a record's literal contains those it embeds.
	sort.Slice(types, func(i, j int) bool {
		return len(types[i].Go.String()) > len(types[j].Go.String())
	})
	pairs := make([]string, 0, 2*len(types))
	for _, t := range types {
		pairs = append(pairs, t.Go.String(), t.Name)
	}
	return strings.NewReplacer(pairs...)
}
