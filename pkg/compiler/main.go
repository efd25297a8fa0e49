// Package compiler turns source text into a linked bytecode image for the
// stack VM in package vm.
//
// Pipeline: source → Preprocess → Tokenize → single-pass codegen → link
//
// Codegen writes straight into a growable buffer. Calls and string literals
// leave 4-byte stubs behind, keyed by buffer offset, that the linker fills
// in once every function entry is known and the strings have been appended.
package compiler
