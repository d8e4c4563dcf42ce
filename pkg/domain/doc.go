/*
Package domain contains the core models of the inkwell engine.

It defines the parsed story graph (Knots, Stitches and the Nodes inside their content
blocks), the inline markup and expression trees evaluated during playback, and the
serialisable runtime State. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - Story: the immutable graph produced by the compiler (knots, stitches, variables).
  - Node: one of Text, Choice, Gather or Divert inside a content Block.
  - Markup: a line of text split into literal, expression, conditional and alternative spans.
  - Value: a scalar variable value (bool, int, float or string).
  - State: the snapshot of a playthrough (location, sequence counters, visit counts).
  - Step: what a single Advance call produced (a Line, a set of Choices, or the end).
*/
package domain
