// Package serialization implements the native .spot format for saving and
// loading detection model weights.
//
// A .spot file is a fixed binary header, a JSON metadata block, and the raw
// tensor data:
//
//	Format Structure:
//	  [0x00: Magic "SPOT" (4 bytes)]
//	  [0x04: Version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x0C: Reserved (4 bytes)]
//	  [0x10: Header Size (uint64 LE)]
//	  [0x18: Data Size (uint64 LE)]
//	  [0x20: SHA-256 checksum of tensor data (32 bytes)]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// The format supports:
//   - Multiple data types (float32, float64, int32, int64, uint8, bool)
//   - Arbitrary tensor shapes
//   - Model configuration embedded in the header, so a file alone is enough
//     to rebuild the model that produced it
//   - Corruption detection through the data checksum
//   - Memory-mapped loading for large checkpoints
//
// Example usage:
//
//	// Save model weights
//	writer, err := serialization.NewWriter("model.spot")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := writer.WriteStateDict(model.StateDict(), "detr", nil); err != nil {
//	    log.Fatal(err)
//	}
//	writer.Close()
//
//	// Load model weights
//	reader, err := serialization.NewReader("model.spot")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stateDict, err := reader.ReadStateDict(backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model.LoadStateDict(stateDict)
//	reader.Close()
package serialization
