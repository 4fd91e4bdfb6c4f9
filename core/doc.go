// Package core contains the shared domain types of the StudyMesh agent
// runtime: the conversation message log, the tool-call lifecycle parts, the
// behavioral mode enum and the per-conversation session state. Higher level
// packages (skill, tool, mode, flow, session, syncer) build on these types
// and never redefine them.
package core
