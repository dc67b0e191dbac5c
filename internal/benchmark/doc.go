// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the hot paths of a filter run,
// used to generate PGO profiles:
//   - configuration loading and CUE schema validation
//   - fragment selection and replacement
//   - script synthesis for both transports
//   - result correlation
//   - the end-to-end cycle against the fake interpreter
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
