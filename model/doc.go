// Package model defines the normalized chat message types and the Invoker
// interface Parley uses to drive generation, plus the transport error
// taxonomy callers switch on. Provider adapters live in subpackages
// (model/openai, model/anthropic) and are selected per deployment; the
// engine only ever sees this interface.
package model
