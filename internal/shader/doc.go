// Package shader defines the domain vocabulary shared by the compiler
// pipeline: shader stages, backend targets and the naming rules that tie a
// source file to its container.
//
// # Wire discriminants
//
// StageKind and BackendTarget carry explicit numeric tags. Those numbers are
// written into every container file and read by the graphics runtime, so they
// must never be renumbered:
//
//	StageVertex=0  StageFragment=1  StageCompute=2
//	BackendBytecodeIR=0  BackendNativeShader=1
package shader
