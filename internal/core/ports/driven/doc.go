// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Oracle: External analysis capability (an LLM) that judges contract text
//   - Chunker: Splits document text into token-bounded chunks
//   - ExtractorRegistry: Turns uploaded document bytes into text
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application falls back to built-in defaults:
//
//   - PromptStore: User-editable prompt templates. Without it, embedded prompts are used.
//   - AIConfigValidator: Connectivity check for Oracle settings.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
