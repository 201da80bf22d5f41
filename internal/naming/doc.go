// Package naming derives everything that follows from a source file's name:
// the texture classification (content kind, topology, atlas layout), the
// destination path, and detection of destination collisions between sources.
//
// Classification is purely lexical. Pixel data is never read; artists opt in
// to a content kind or topology with filename suffixes and tokens such as
// "rock-n.png" or "sky-cube.png".
package naming
