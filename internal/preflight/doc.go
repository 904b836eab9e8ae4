// Package preflight provides readiness checks for the filesystem paths and
// remote endpoints mediavault depends on.
//
// These checks run in two contexts:
//   - The download pipeline calls CheckFreeSpace before writing a stored file
//     so a download that cannot fit fails before any bytes move.
//   - The CLI "mediavault status" command uses RunAll to display health.
package preflight
