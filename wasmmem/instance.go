package wasmmem

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Config holds configuration for Open.
type Config struct {
	// InitialPages is the starting size in 64KB pages. 0 means 1.
	InitialPages uint32

	// MemoryLimitPages caps growth in pages. 0 means the runtime default
	// (65536 pages = 4GB).
	MemoryLimitPages uint32

	// Logger receives lifecycle events. nil means no logging.
	Logger *zap.Logger
}

// Instance owns a wazero runtime and the memory-only module inside it.
type Instance struct {
	*Memory
	runtime wazero.Runtime
	log     *zap.Logger
}

// Open instantiates a module exporting one memory and returns it.
func Open(ctx context.Context, cfg Config) (*Instance, error) {
	pages := cfg.InitialPages
	if pages == 0 {
		pages = 1
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		if pages > cfg.MemoryLimitPages {
			return nil, fmt.Errorf("initial pages %d exceed limit %d", pages, cfg.MemoryLimitPages)
		}
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	mod, err := rt.Instantiate(ctx, memoryModule(pages))
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("instantiate memory module: %w", err)
	}
	mem := mod.Memory()
	if mem == nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("memory module has no memory")
	}

	log.Debug("wasm memory opened",
		zap.Uint32("pages", pages),
		zap.Uint32("limit_pages", cfg.MemoryLimitPages))

	return &Instance{Memory: New(mem), runtime: rt, log: log}, nil
}

// Close releases the runtime. The memory must not be used afterwards.
func (i *Instance) Close(ctx context.Context) error {
	i.log.Debug("wasm memory closed", zap.Uint32("size", i.Size()))
	return i.runtime.Close(ctx)
}

// memoryModule encodes a binary module with one memory of the given
// minimum size, exported as "memory".
func memoryModule(pages uint32) []byte {
	limits := append([]byte{0x00}, uleb128(pages)...)
	memSec := append([]byte{0x01}, limits...)

	name := "memory"
	exportSec := []byte{0x01, byte(len(name))}
	exportSec = append(exportSec, name...)
	exportSec = append(exportSec, 0x02, 0x00)

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	bin = append(bin, 0x05)
	bin = append(bin, uleb128(uint32(len(memSec)))...)
	bin = append(bin, memSec...)
	bin = append(bin, 0x07)
	bin = append(bin, uleb128(uint32(len(exportSec)))...)
	bin = append(bin, exportSec...)
	return bin
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
