// Package gps implements the repository manager, package container, and
// pin/lock persistence that make up the core of a source-based package
// manager's workspace. It resolves a set of root packages plus declared
// dependency constraints into materialized, on-disk bare clones and working
// copies, and exposes the per-package view (available versions, manifest at
// a revision, transitive constraints) that a solver consumes as an oracle.
//
// The name carries over from the project this package was distilled from,
// where it stood for "global package store": a concurrent, content-addressed
// cache of source-control state shared by every package in a workspace.
package gps
