// Package wasmmem backs bincodec.Memory with WebAssembly linear memory.
//
// Memory adapts any wazero api.Memory, so codecs can read and write values
// directly in a guest module's address space. Open creates a standalone
// runtime holding a single memory-only module, which is useful as a
// bounds-checked scratch arena:
//
//	inst, err := wasmmem.Open(ctx, wasmmem.Config{InitialPages: 1})
//	if err != nil { ... }
//	defer inst.Close(ctx)
//
//	w, cur := stream.NewMemoryWriter(inst, 0)
//	err = codec.Encode(w, value)
//	n := cur.Offset()
package wasmmem
