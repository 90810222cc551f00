// Package agent contains the assistant implementations that turn dispatched
// utterances into replies. The package covers three concerns:
//
//  1. Base lifecycle plumbing (BaseAgent)
//  2. Instruction resolution (static text or dynamic providers)
//  3. The model-backed, command-calling Assistant
//
// Execution model: an agent's Run receives a *core.RunContext from the
// engine. The Assistant first tries to resolve the utterance against its
// command registry's patterns; a match executes the command directly without
// a model call. Everything else goes through the flow pipeline where the
// model sees the registered commands as callable tools.
package agent
