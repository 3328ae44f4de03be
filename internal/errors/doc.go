// Package errors provides structured errors for the wharf pipeline.
//
// Every failure surfaced by a pipeline stage carries a stable code and a
// category from the pipeline failure taxonomy:
//
//   - precondition: a required input file or directory is absent
//   - dependency: manifest/lock mismatch or unreachable package source
//   - compile: the toolchain rejected source or configuration
//   - packaging: base image or copy step failed
//   - config: wharf.json or toolchain misconfiguration
//   - cli: command usage errors
//
// Errors are fatal and unrecoverable at the pipeline layer. Stages attach
// the invoked tool's diagnostic output via WithDetail and add no further
// translation.
//
// Usage:
//
//	return errors.New("W300").
//	    WithDetail(stderr.String()).
//	    Wrap(err)
package errors
