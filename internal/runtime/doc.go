// Package runtime provides the sandbox runtimes forage-play boots projects in.
//
// Supported runtimes:
//   - local: host processes in a private temporary directory
//   - mock: in-memory filesystem (go-billy memfs) with scripted processes
//
// Use New with a Config to select one; RuntimeAuto picks local when the
// package manager is on PATH.
//
// # Runtime Interface
//
// Runtime.Boot returns a Handle, the live sandbox:
//   - ReadFile, WriteFile, MkdirAll: filesystem access relative to the
//     sandbox root
//   - Mount: write a transform.Mapping in one call
//   - Spawn: start a process whose combined output is streamed
//   - OnServerReady: subscribe to server-ready events, delivered every
//     time a server announces itself
//   - Teardown: kill processes and release the sandbox; every later call
//     returns ErrTornDown
//
// The local runtime derives server-ready events from process output by
// recognising local URLs (see DetectReady). Paths are resolved with
// filepath-securejoin so tree names cannot escape the sandbox directory.
//
// # Mock Runtime
//
// NewMockRuntime returns a runtime whose processes follow ProcessScripts
// keyed by command line, with error injection per method (SetError) and a
// call log (GetCalls, GetCallsFor). Its filesystem survives across Boot
// calls, which lets tests exercise sandbox reuse.
package runtime
