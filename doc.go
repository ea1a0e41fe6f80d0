// Package bifrost provides a uniform access layer over heterogeneous
// data sources: relational databases, document stores, files, web APIs,
// and hosted documents all answer the same connector contract.
//
// Every backend implements core.Connector: connection testing that
// reports rather than fails, capability negotiation, schema discovery
// with graceful degradation, query validation, and execution into one
// normalized result shape. Connectors are constructed explicitly and
// looked up through an injected registry; pkg/connector/catalog wires
// the full set.
//
// Subpackage layout:
//
//   - pkg/connector/core — contract types and the command grammar
//   - pkg/connector/registry — connector lookup by type name
//   - pkg/connector/discovery — bounded-parallel schema discovery
//   - pkg/connector/sqlbase — shared SQL engine over per-dialect drivers
//   - pkg/connector/... — one package per backend
//   - pkg/config — connection profiles
//   - pkg/clients — shared HTTP client
//   - pkg/errors — typed errors with stack capture
package bifrost
