// Package storage opens the byte streams that CBF images are decoded from.
//
// A location is a local path (or file:// URL), an http(s) URL, or an
// azblob://container/blob URL for Azure Blob Storage. Whatever the source,
// streams that start with a gzip or zstd header are decompressed on the fly,
// so detector frames archived as .cbf.gz or .cbf.zst open like plain files.
package storage
