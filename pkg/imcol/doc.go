// Package imcol provides lazily loaded, multi-channel microscopy images.
//
// An image is a set of named channels (for example "dna" and "protein"), each
// backed by one or more files on disk. Pixel data is decoded on first access
// and memoized in the image until Unload is called. Three layouts are supported:
//
//   - FileImage: one single-plane file per channel
//   - StackFileImage: one multi-plane file per channel (z-stack, time series)
//   - MultiFileImage: one file per plane, an ordered list of files per channel
//
// All three implement PlaneImage. Decoded planes are *image.Gray16 values; a
// channel's planes form a Stack.
//
// # Caching
//
// Each image owns its cache. Repeated Get calls return the same planes (same
// pointers) until Unload. Unload never changes what a later Get returns, only
// whether the files are decoded again. Images do not share caches, so two
// images naming the same file decode it twice.
//
// Use Scoped to bound the lifetime of decoded data:
//
//	err := imcol.Scoped(img, func(img *imcol.StackFileImage) error {
//	    rgb, err := img.Composite(imcol.DefaultChannels, imcol.CentralPlane)
//	    ...
//	})
//
// # Serialization
//
// State and Restore expose the declared channel to file mapping, sorted by
// channel. JSON and gob encodings are built on them and never carry pixel
// data; a restored image starts with an empty cache.
//
// # Thread Safety
//
// Images are not safe for concurrent use. Confine each image to one goroutine
// or synchronise access externally.
package imcol
